package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kosarica/price-crawler/internal/model"
)

// ErrChainDirNotFound signals that a chain has no CSV directory for the
// requested date. Callers treat it as "nothing to load", not as a failure.
var ErrChainDirNotFound = errors.New("chain CSV directory not found")

// ReadChain reconstructs the Stores-with-Products of one chain from the
// canonical CSVs under dir (a <date>/<chain> directory). Unknown columns are
// ignored and missing optional columns default to empty. Decimals that fail
// to parse become absent; a missing price defaults to zero.
func ReadChain(dir, chain string) ([]model.Store, error) {
	if info, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrChainDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrChainDirNotFound, dir)
	}

	stores := make(map[string]*model.Store)
	order := make([]string, 0)

	storeRows, err := readFile(filepath.Join(dir, StoresFile))
	if err != nil {
		return nil, err
	}
	for _, row := range storeRows {
		storeID := row["store_id"]
		if storeID == "" {
			continue
		}
		if _, ok := stores[storeID]; ok {
			log.Warn().Str("store_id", storeID).Msg("Duplicate store row, keeping first occurrence")
			continue
		}
		stores[storeID] = &model.Store{
			Chain:         chain,
			StoreID:       storeID,
			Name:          storeID,
			StoreType:     row["type"],
			City:          row["city"],
			StreetAddress: row["address"],
			Zipcode:       row["zipcode"],
		}
		order = append(order, storeID)
	}

	productRows, err := readFile(filepath.Join(dir, ProductsFile))
	if err != nil {
		return nil, err
	}
	products := make(map[string]map[string]string)
	for _, row := range productRows {
		productID := row["product_id"]
		if productID == "" {
			continue
		}
		if _, ok := products[productID]; !ok {
			products[productID] = row
		}
	}

	priceRows, err := readFile(filepath.Join(dir, PricesFile))
	if err != nil {
		return nil, err
	}
	for _, row := range priceRows {
		storeID := row["store_id"]
		productID := row["product_id"]
		if storeID == "" || productID == "" {
			continue
		}
		store := stores[storeID]
		meta := products[productID]
		if store == nil || meta == nil {
			log.Warn().Str("store_id", storeID).Str("product_id", productID).
				Msg("Price row references unknown store or product, skipping")
			continue
		}

		price := parseDecimal(row["price"])
		if price == nil {
			// Documented quirk: a missing price reads back as zero here,
			// while the reconciler skips price-less rows outright.
			zero := decimal.Zero
			price = &zero
		}

		store.Items = append(store.Items, model.Product{
			ProductID:    productID,
			Name:         meta["name"],
			Brand:        meta["brand"],
			Category:     meta["category"],
			Unit:         meta["unit"],
			Quantity:     meta["quantity"],
			Barcode:      meta["barcode"],
			Price:        price,
			UnitPrice:    parseDecimal(row["unit_price"]),
			BestPrice30:  parseDecimal(row["best_price_30"]),
			AnchorPrice:  parseDecimal(row["anchor_price"]),
			SpecialPrice: parseDecimal(row["special_price"]),
		})
	}

	result := make([]model.Store, 0, len(order))
	for _, storeID := range order {
		result = append(result, *stores[storeID])
	}
	return result, nil
}

// parseDecimal parses an optional decimal field. Empty or malformed values
// become absent, never zero.
func parseDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// readFile reads a CSV file into header-keyed rows. Rows with a field count
// different from the header are malformed and skipped with a warning.
func readFile(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: missing %s", ErrChainDirNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	rows := make([]map[string]string, 0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("Skipping malformed CSV row")
			continue
		}
		if len(record) != len(header) {
			log.Warn().Str("path", path).Int("fields", len(record)).
				Msg("Skipping row with unexpected field count")
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
