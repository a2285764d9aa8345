package main

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	minAgreement  = 2
	maxSheets     = bits.UintSize
)

func importStockCommand(lg *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "import-stock",
		Usage:     "apply stock counts that at least two blind count sheets agree on",
		ArgsUsage: "SHEET.gz SHEET.gz [SHEET.gz...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "report agreed counts without writing them"},
		},
		Action: func(c *cli.Context) error {
			sheets := c.Args().Slice()
			if len(sheets) < minAgreement || len(sheets) > maxSheets {
				return errors.Errorf("need between %d and %d count sheets, got %d", minAgreement, maxSheets, len(sheets))
			}

			counts, conflicts, err := agreedCounts(c.Context, lg, sheets)
			if err != nil {
				return err
			}
			for _, key := range conflicts {
				lg.Warn("Sheets agree on more than one count, skipping", zap.String("line", key))
			}
			lg.Info("Counts agreed", zap.Int("count", len(counts)), zap.Int("conflicts", len(conflicts)))
			if c.Bool("dry-run") || len(counts) == 0 {
				return nil
			}

			pool, err := connect(c, lg)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := postgres.NewProductRepository(pool).ImportStock(c.Context, counts)
			if err != nil {
				return errors.Wrap(err, "import stock")
			}
			lg.Info("Stock imported", zap.Int("applied", applied), zap.Int("skipped", len(counts)-applied))
			return nil
		},
	}
}

// parseCount parses "productId,size,quantity".
func parseCount(line string) (postgres.StockCount, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return postgres.StockCount{}, errors.Errorf("want 3 fields, got %d", len(parts))
	}
	id := strings.TrimSpace(parts[0])
	if id == "" {
		return postgres.StockCount{}, errors.New("empty product id")
	}
	size, err := catalog.ParseSize(strings.ToUpper(strings.TrimSpace(parts[1])))
	if err != nil {
		return postgres.StockCount{}, err
	}
	qty, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || qty < 0 {
		return postgres.StockCount{}, errors.Errorf("invalid quantity %q", parts[2])
	}
	return postgres.StockCount{ProductID: id, Size: size, Quantity: qty}, nil
}

func countKey(c postgres.StockCount) string {
	return c.ProductID + "|" + string(c.Size) + "|" + strconv.Itoa(c.Quantity)
}

// agreedCounts keeps every count that appears on at least two sheets. Pass
// one builds a bloom filter per sheet; pass two rechecks each line against
// the other sheets' filters and records which sheets carried it. When the
// sheets agree on different quantities for the same product size the line is
// reported as a conflict instead.
func agreedCounts(ctx context.Context, lg *zap.Logger, sheets []string) ([]postgres.StockCount, []string, error) {
	filters := make([]*bloom.BloomFilter, len(sheets))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range sheets {
		g.Go(func() error {
			f := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			n, err := streamSheet(gctx, path, func(c postgres.StockCount) {
				f.AddString(countKey(c))
			})
			if err != nil {
				return errors.Wrapf(err, "index sheet %s", path)
			}
			lg.Info("Sheet indexed", zap.String("sheet", path), zap.Int("lines", n))
			filters[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	seen := make([]map[string]uint, len(sheets))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range sheets {
		g.Go(func() error {
			marks := make(map[string]uint)
			bit := uint(1) << uint(i)
			_, err := streamSheet(gctx, path, func(c postgres.StockCount) {
				key := countKey(c)
				for j, f := range filters {
					if j != i && f.TestString(key) {
						marks[key] |= bit
						return
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan sheet %s", path)
			}
			seen[i] = marks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Bloom hits can be false positives, so agreement is counted on the
	// exact keys each sheet actually carried.
	merged := make(map[string]uint)
	for _, marks := range seen {
		for key, mask := range marks {
			merged[key] |= mask
		}
	}

	byLine := make(map[string][]postgres.StockCount)
	for key, mask := range merged {
		if bits.OnesCount(mask) < minAgreement {
			continue
		}
		c, err := parseKey(key)
		if err != nil {
			return nil, nil, err
		}
		line := c.ProductID + "|" + string(c.Size)
		byLine[line] = append(byLine[line], c)
	}

	var (
		counts    []postgres.StockCount
		conflicts []string
	)
	for line, cs := range byLine {
		if len(cs) > 1 {
			conflicts = append(conflicts, line)
			continue
		}
		counts = append(counts, cs[0])
	}
	sort.Slice(counts, func(i, j int) bool { return countKey(counts[i]) < countKey(counts[j]) })
	sort.Strings(conflicts)
	return counts, conflicts, nil
}

func parseKey(key string) (postgres.StockCount, error) {
	return parseCount(strings.ReplaceAll(key, "|", ","))
}

// streamSheet calls fn for each valid count in a gzip-compressed sheet and
// returns how many it found. Blank lines and lines starting with '#' are
// skipped; malformed lines fail the sheet.
func streamSheet(ctx context.Context, path string, fn func(postgres.StockCount)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	n, lineNo := 0, 0
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := parseCount(line)
		if err != nil {
			return n, errors.Wrapf(err, "%s:%d", path, lineNo)
		}
		fn(c)
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrapf(err, "scan %s", path)
	}
	return n, nil
}
