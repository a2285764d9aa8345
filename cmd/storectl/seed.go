package main

import (
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/db"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/storage/postgres"
)

func seedCommand(lg *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "upsert the sample catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "products JSON file (defaults to the embedded sample catalog)"},
		},
		Action: func(c *cli.Context) error {
			data := db.Seed
			if path := c.String("file"); path != "" {
				b, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrap(err, "read products file")
				}
				data = b
			}
			products, err := parseSeed(data, time.Now().UTC())
			if err != nil {
				return errors.Wrap(err, "parse products")
			}

			pool, err := connect(c, lg)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := postgres.NewProductRepository(pool)
			for i := range products {
				p := &products[i]
				if err := repo.Upsert(c.Context, p); err != nil {
					return errors.Wrapf(err, "upsert product %s", p.ID)
				}
				lg.Info("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
			}
			lg.Info("Seed completed", zap.Int("products", len(products)))
			return nil
		},
	}
}

// parseSeed reads a JSON array of products. Stock is given as a size→count
// object; sizes it omits start at zero.
func parseSeed(data []byte, now time.Time) ([]catalog.Product, error) {
	var products []catalog.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p := catalog.Product{CreatedAt: now, UpdatedAt: now}
		counts := make(map[catalog.Size]int)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "description":
				p.Description, err = d.Str()
			case "pantDetails":
				p.PantDetails, err = d.Str()
			case "shirtDetails":
				p.ShirtDetails, err = d.Str()
			case "price":
				p.Price, err = decodeAmount(d)
			case "originalPrice":
				var v decimal.Decimal
				if v, err = decodeAmount(d); err == nil {
					p.OriginalPrice = decimal.NewNullDecimal(v)
				}
			case "category":
				var s string
				if s, err = d.Str(); err == nil {
					p.Category, err = catalog.ParseCategory(s)
				}
			case "imageUrl":
				p.ImageURL, err = d.Str()
			case "featured":
				p.Featured, err = d.Bool()
			case "stock":
				err = d.Obj(func(d *jx.Decoder, key string) error {
					size, err := catalog.ParseSize(key)
					if err != nil {
						return err
					}
					n, err := d.Int()
					counts[size] = n
					return err
				})
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}
		if p.ID == "" || p.Name == "" || !p.Price.IsPositive() {
			return errors.Errorf("product %q needs id, name and a positive price", p.ID)
		}
		for _, size := range catalog.Sizes {
			p.Stock = append(p.Stock, catalog.SizeStock{Size: size, Quantity: counts[size]})
		}
		products = append(products, p)
		return nil
	})
	return products, err
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
