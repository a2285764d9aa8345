package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/combo-store/db"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/storage/postgres"
)

func TestParseSeed(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Embedded", func(t *testing.T) {
		products, err := parseSeed(db.Seed, now)
		require.NoError(t, err)
		require.NotEmpty(t, products)

		first := products[0]
		assert.Equal(t, "navy-formal-combo", first.ID)
		assert.Equal(t, "1500", first.Price.String())
		assert.True(t, first.Discounted())
		assert.Equal(t, catalog.CategoryFormal, first.Category)
		assert.Equal(t, 10, first.AvailableQuantity(catalog.SizeM))
		assert.Equal(t, now, first.CreatedAt)
		for _, p := range products {
			assert.Len(t, p.Stock, len(catalog.Sizes), p.ID)
		}
	})
	t.Run("MissingSizesStartAtZero", func(t *testing.T) {
		products, err := parseSeed([]byte(`[{"id":"p1","name":"Combo","price":999.5,"category":"Casual","stock":{"L":3}}]`), now)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.False(t, products[0].OriginalPrice.Valid)
		assert.Equal(t, 3, products[0].AvailableQuantity(catalog.SizeL))
		assert.Equal(t, 0, products[0].AvailableQuantity(catalog.SizeS))
	})
	t.Run("Invalid", func(t *testing.T) {
		for name, data := range map[string]string{
			"category": `[{"id":"p1","name":"Combo","price":10,"category":"Sport"}]`,
			"size":     `[{"id":"p1","name":"Combo","price":10,"category":"Casual","stock":{"XS":1}}]`,
			"price":    `[{"id":"p1","name":"Combo","price":0,"category":"Casual"}]`,
			"json":     `[{"id":`,
		} {
			_, err := parseSeed([]byte(data), now)
			assert.Error(t, err, name)
		}
	})
}

func TestParseCount(t *testing.T) {
	c, err := parseCount(" navy-formal-combo, xl ,7 ")
	require.NoError(t, err)
	assert.Equal(t, postgres.StockCount{ProductID: "navy-formal-combo", Size: catalog.SizeXL, Quantity: 7}, c)

	for _, line := range []string{"p1,M", "p1,XS,1", "p1,M,-1", "p1,M,many", ",M,1"} {
		_, err := parseCount(line)
		assert.Error(t, err, line)
	}
}

func writeSheet(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestAgreedCounts(t *testing.T) {
	dir := t.TempDir()
	sheets := []string{
		writeSheet(t, dir, "a.gz",
			"# morning count",
			"p1,M,5",
			"p1,L,2",
			"p2,S,1",
			"p3,M,4",
		),
		writeSheet(t, dir, "b.gz",
			"p1,M,5",
			"p1,L,3",
			"",
			"p2,S,0",
			"p3,M,6",
		),
		writeSheet(t, dir, "c.gz",
			"p1,L,3",
			"p2,S,9",
			"p3,M,4",
			"p3,M,6",
		),
	}

	counts, conflicts, err := agreedCounts(context.Background(), zaptest.NewLogger(t), sheets)
	require.NoError(t, err)
	assert.Equal(t, []postgres.StockCount{
		{ProductID: "p1", Size: catalog.SizeL, Quantity: 3},
		{ProductID: "p1", Size: catalog.SizeM, Quantity: 5},
	}, counts)
	assert.Equal(t, []string{"p3|M"}, conflicts)
}

func TestAgreedCountsBadSheet(t *testing.T) {
	dir := t.TempDir()
	good := writeSheet(t, dir, "a.gz", "p1,M,5")
	bad := writeSheet(t, dir, "b.gz", "p1,M")

	_, _, err := agreedCounts(context.Background(), zaptest.NewLogger(t), []string{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.gz:1")

	_, _, err = agreedCounts(context.Background(), zaptest.NewLogger(t), []string{good, filepath.Join(dir, "missing.gz")})
	assert.Error(t, err)
}
