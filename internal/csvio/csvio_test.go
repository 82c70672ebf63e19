package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/price-crawler/internal/model"
)

func sampleStores() []model.Store {
	return []model.Store{
		{
			Chain:         "acme",
			StoreID:       "S1",
			StoreType:     "supermarket",
			City:          "Zagreb",
			StreetAddress: "Ilica 1",
			Zipcode:       "10000",
			Items: []model.Product{
				{
					ProductID:   "P1",
					Name:        "Mlijeko 2.8%",
					Brand:       "Dukat",
					Category:    "mlijecni",
					Unit:        "l",
					Quantity:    "1",
					Barcode:     "3858881583733",
					Price:       model.Dec("1.99"),
					UnitPrice:   model.Dec("1.99"),
					BestPrice30: model.Dec("1.89"),
				},
				{
					ProductID: "P2",
					Name:      "Kruh",
					Price:     model.Dec("1.10"),
				},
			},
		},
		{
			Chain:   "acme",
			StoreID: "S2",
			Items: []model.Product{
				{
					ProductID: "P1",
					Name:      "Mlijeko 2.8% (drugi naziv)",
					Barcode:   "3858881583733",
					Price:     model.Dec("2.09"),
				},
			},
		},
	}
}

func TestTransformDeduplicatesProducts(t *testing.T) {
	storeRecs, productRecs, priceRecs := Transform(sampleStores())

	assert.Len(t, storeRecs, 2)
	require.Len(t, productRecs, 2)
	assert.Len(t, priceRecs, 3)

	// First occurrence of P1 wins; the S2 variant of the name is dropped.
	assert.Equal(t, "Mlijeko 2.8%", productRecs[0].Name)

	// Missing upstream barcode falls back to the chain-scoped key.
	assert.Equal(t, "acme:P2", productRecs[1].Barcode)
}

func TestTransformRendersAbsentDecimalsEmpty(t *testing.T) {
	_, _, priceRecs := Transform(sampleStores())

	kruh := priceRecs[1]
	assert.Equal(t, "1.10", kruh.Price)
	assert.Equal(t, "", kruh.UnitPrice)
	assert.Equal(t, "", kruh.BestPrice30)
	assert.Equal(t, "", kruh.AnchorPrice)
	assert.Equal(t, "", kruh.SpecialPrice)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")
	input := sampleStores()
	require.NoError(t, WriteChain(dir, input))

	got, err := ReadChain(dir, "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)

	s1 := got[0]
	assert.Equal(t, "acme", s1.Chain)
	assert.Equal(t, "S1", s1.StoreID)
	assert.Equal(t, "Zagreb", s1.City)
	require.Len(t, s1.Items, 2)

	p1 := s1.Items[0]
	assert.Equal(t, "P1", p1.ProductID)
	assert.Equal(t, "3858881583733", p1.Barcode)
	assert.True(t, model.DecimalEqual(model.Dec("1.99"), p1.Price))
	assert.True(t, model.DecimalEqual(model.Dec("1.89"), p1.BestPrice30))
	assert.Nil(t, p1.AnchorPrice)

	// Catalog fields come from the deduplicated products.csv, so S2's P1
	// reads back with S1's name.
	require.Len(t, got[1].Items, 1)
	assert.Equal(t, "Mlijeko 2.8%", got[1].Items[0].Name)
	assert.True(t, model.DecimalEqual(model.Dec("2.09"), got[1].Items[0].Price))
}

func TestWriteChainSkipsEmptyFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")
	require.NoError(t, WriteChain(dir, nil))

	_, err := os.Stat(filepath.Join(dir, StoresFile))
	assert.True(t, os.IsNotExist(err))
}

func TestReadChainMissingDir(t *testing.T) {
	_, err := ReadChain(filepath.Join(t.TempDir(), "nope"), "acme")
	assert.ErrorIs(t, err, ErrChainDirNotFound)
}

func TestReadChainMergesDuplicateStoreRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")

	// A store split across two entries writes two identical stores.csv rows;
	// reading back must yield one store with every observation exactly once.
	split := []model.Store{
		{Chain: "acme", StoreID: "S1", City: "Zagreb",
			Items: []model.Product{{ProductID: "P1", Name: "Kruh", Price: model.Dec("1.10")}}},
		{Chain: "acme", StoreID: "S1", City: "Zagreb",
			Items: []model.Product{{ProductID: "P2", Name: "Mlijeko", Price: model.Dec("1.15")}}},
	}
	require.NoError(t, WriteChain(dir, split))

	got, err := ReadChain(dir, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Items, 2)
	assert.Equal(t, "P1", got[0].Items[0].ProductID)
	assert.Equal(t, "P2", got[0].Items[1].ProductID)
}

func TestReadChainQuirks(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	// Unknown trailing column, a malformed row, an empty price and a
	// malformed optional decimal.
	write(StoresFile, "store_id,type,address,city,zipcode,extra\nS1,,,,,x\n")
	write(ProductsFile, "product_id,barcode,name,brand,category,unit,quantity\nP1,,Kruh,,,,\n")
	write(PricesFile, "store_id,product_id,price,unit_price,best_price_30,anchor_price,special_price\n"+
		"S1,P1,,abc,,,\n"+
		"S1,P1,1.99\n")

	got, err := ReadChain(dir, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Items, 1)

	p := got[0].Items[0]
	// Missing price reads back as zero; malformed unit_price becomes absent.
	assert.True(t, p.Price.IsZero())
	assert.Nil(t, p.UnitPrice)
	assert.Equal(t, "Kruh", p.Name)
}
