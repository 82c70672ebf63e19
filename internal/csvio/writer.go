package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kosarica/price-crawler/internal/model"
)

// renderDecimal renders an optional decimal for CSV output: two fractional
// digits, or the empty string when absent.
func renderDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Round(2).StringFixed(2)
}

// Transform flattens a chain's stores into the three canonical record lists.
// Products are de-duplicated by "{chain}:{product_id}", first occurrence
// winning; every (store, product) observation yields one price row.
func Transform(stores []model.Store) ([]StoreRecord, []ProductRecord, []PriceRecord) {
	storeRecs := make([]StoreRecord, 0, len(stores))
	productRecs := make([]ProductRecord, 0)
	priceRecs := make([]PriceRecord, 0)
	seen := make(map[string]bool)

	for _, store := range stores {
		storeRecs = append(storeRecs, StoreRecord{
			StoreID: store.StoreID,
			Type:    store.StoreType,
			Address: store.StreetAddress,
			City:    store.City,
			Zipcode: store.Zipcode,
		})

		for _, item := range store.Items {
			key := store.Chain + ":" + item.ProductID
			if !seen[key] {
				seen[key] = true
				barcode := item.Barcode
				if barcode == "" {
					barcode = key
				}
				productRecs = append(productRecs, ProductRecord{
					ProductID: item.ProductID,
					Barcode:   barcode,
					Name:      item.Name,
					Brand:     item.Brand,
					Category:  item.Category,
					Unit:      item.Unit,
					Quantity:  item.Quantity,
				})
			}
			priceRecs = append(priceRecs, PriceRecord{
				StoreID:      store.StoreID,
				ProductID:    item.ProductID,
				Price:        renderDecimal(item.Price),
				UnitPrice:    renderDecimal(item.UnitPrice),
				BestPrice30:  renderDecimal(item.BestPrice30),
				AnchorPrice:  renderDecimal(item.AnchorPrice),
				SpecialPrice: renderDecimal(item.SpecialPrice),
			})
		}
	}

	return storeRecs, productRecs, priceRecs
}

// WriteChain writes stores.csv, products.csv and prices.csv for one chain
// into dir, creating the directory as needed. Files with zero data rows are
// skipped with a warning rather than created.
func WriteChain(dir string, stores []model.Store) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chain directory %s: %w", dir, err)
	}

	storeRecs, productRecs, priceRecs := Transform(stores)

	if err := writeFile(filepath.Join(dir, StoresFile), StoreColumns, storeRows(storeRecs)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, ProductsFile), ProductColumns, productRows(productRecs)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, PricesFile), PriceColumns, priceRows(priceRecs)); err != nil {
		return err
	}
	return nil
}

func storeRows(recs []StoreRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.StoreID, r.Type, r.Address, r.City, r.Zipcode})
	}
	return rows
}

func productRows(recs []ProductRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.ProductID, r.Barcode, r.Name, r.Brand, r.Category, r.Unit, r.Quantity})
	}
	return rows
}

func priceRows(recs []PriceRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.StoreID, r.ProductID, r.Price, r.UnitPrice, r.BestPrice30, r.AnchorPrice, r.SpecialPrice})
	}
	return rows
}

// writeFile writes one canonical CSV: UTF-8 without BOM, LF line endings,
// minimal quoting. A row whose width does not match the column set is a
// fatal precondition error.
func writeFile(path string, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		log.Warn().Str("path", path).Msg("No data to save, skipping")
		return nil
	}

	for _, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("column mismatch in %s: expected %d columns, got %d", path, len(columns), len(row))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}
