package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

const (
	productColumns = `id, name, description, pant_details, shirt_details, price, original_price,
		category, image_url, featured, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY name, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY name, id`

	stockOrder = `array_position(ARRAY['S', 'M', 'L', 'XL', 'XXL'], size)`

	listStockSQL = `SELECT product_id, size, quantity FROM product_stock
		ORDER BY product_id, ` + stockOrder

	getStockByProductsSQL = `SELECT product_id, size, quantity FROM product_stock
		WHERE product_id = ANY($1) ORDER BY product_id, ` + stockOrder

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	upsertProductSQL = insertProductSQL + `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			pant_details = EXCLUDED.pant_details, shirt_details = EXCLUDED.shirt_details,
			price = EXCLUDED.price, original_price = EXCLUDED.original_price,
			category = EXCLUDED.category, image_url = EXCLUDED.image_url,
			featured = EXCLUDED.featured, updated_at = EXCLUDED.updated_at`

	updateProductSQL = `UPDATE products SET
		name = $2, description = $3, pant_details = $4, shirt_details = $5, price = $6,
		original_price = $7, category = $8, image_url = $9, featured = $10, updated_at = $11
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertStockSQL = `INSERT INTO product_stock (product_id, size, quantity)
		SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM products WHERE id = $1)
		ON CONFLICT (product_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`
)

const foreignKeyViolation = "23503"

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog with stock. Products and stock rows are
// fetched concurrently.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	var (
		products []catalog.Product
		stock    map[string][]catalog.SizeStock
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, listProductsSQL)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}
		products, err = pgx.CollectRows(rows, scanProduct)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, listStockSQL)
		if err != nil {
			return fmt.Errorf("listing stock: %w", err)
		}
		stock, err = collectStock(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	attachStock(products, stock)
	return products, nil
}

// GetByID returns a single product with stock.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	stock, err := r.stockFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.Stock = stock[id]
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs, with stock.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}

	stock, err := r.stockFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	attachStock(products, stock)
	return products, nil
}

// Create inserts a product and its stock rows in one transaction.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertProductSQL, productArgs(p)...); err != nil {
			return fmt.Errorf("creating product %q: %w", p.ID, err)
		}
		return upsertStock(ctx, tx, p.ID, p.Stock)
	})
}

// Upsert inserts or replaces a product and its stock rows.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertProductSQL, productArgs(p)...); err != nil {
			return fmt.Errorf("upserting product %q: %w", p.ID, err)
		}
		return upsertStock(ctx, tx, p.ID, p.Stock)
	})
}

// Update replaces the editable fields of a product. Stock is left untouched.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.PantDetails, p.ShirtDetails, p.Price,
		p.OriginalPrice, p.Category, p.ImageURL, p.Featured, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Delete removes a product. Its stock rows go with it; order lines keep
// their copied name and lose the product reference.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SetStock upserts one row per (product, size).
func (r *ProductRepository) SetStock(ctx context.Context, productID string, stock []catalog.SizeStock) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return upsertStock(ctx, tx, productID, stock)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return catalog.ErrNotFound
	}
	return err
}

// StockCount is an absolute stock level for one product size.
type StockCount struct {
	ProductID string
	Size      catalog.Size
	Quantity  int
}

// ImportStock writes counts in a single transaction and returns how many
// were applied. Counts for unknown products are skipped.
func (r *ProductRepository) ImportStock(ctx context.Context, counts []StockCount) (int, error) {
	applied := 0
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range counts {
			batch.Queue(upsertStockSQL, c.ProductID, c.Size, c.Quantity)
		}
		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for _, c := range counts {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("importing stock for %s/%s: %w", c.ProductID, c.Size, err)
			}
			applied += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

func (r *ProductRepository) stockFor(ctx context.Context, ids []string) (map[string][]catalog.SizeStock, error) {
	rows, err := r.pool.Query(ctx, getStockByProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting stock: %w", err)
	}
	return collectStock(rows)
}

func upsertStock(ctx context.Context, tx pgx.Tx, productID string, stock []catalog.SizeStock) error {
	if len(stock) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range stock {
		batch.Queue(`INSERT INTO product_stock (product_id, size, quantity) VALUES ($1, $2, $3)
			ON CONFLICT (product_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`,
			productID, s.Size, s.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("setting stock for product %q: %w", productID, err)
	}
	return nil
}

func productArgs(p *catalog.Product) []any {
	return []any{
		p.ID, p.Name, p.Description, p.PantDetails, p.ShirtDetails, p.Price,
		p.OriginalPrice, p.Category, p.ImageURL, p.Featured, p.CreatedAt, p.UpdatedAt,
	}
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.PantDetails, &p.ShirtDetails, &p.Price,
		&p.OriginalPrice, &p.Category, &p.ImageURL, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func collectStock(rows pgx.Rows) (map[string][]catalog.SizeStock, error) {
	stock := make(map[string][]catalog.SizeStock)
	var (
		productID string
		s         catalog.SizeStock
	)
	_, err := pgx.ForEachRow(rows, []any{&productID, &s.Size, &s.Quantity}, func() error {
		stock[productID] = append(stock[productID], s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading stock rows: %w", err)
	}
	return stock, nil
}

func attachStock(products []catalog.Product, stock map[string][]catalog.SizeStock) {
	for i := range products {
		products[i].Stock = stock[products[i].ID]
	}
}
