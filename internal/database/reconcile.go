package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kosarica/price-crawler/internal/model"
)

// barcodeMaxLen caps the products primary key; synthetic "{chain}:{id}"
// barcodes from chains with long product ids are truncated to fit.
const barcodeMaxLen = 40

// Stats summarizes one reconciliation call.
type Stats struct {
	PricesAdded     int
	PricesUpdated   int
	PricesUnchanged int
	Duplicates      int
	Invalid         int
}

// priceFields is the set of decimal fields compared for change detection.
// Price is required; the other four are nullable.
type priceFields struct {
	Price        decimal.Decimal
	UnitPrice    *decimal.Decimal
	BestPrice30  *decimal.Decimal
	AnchorPrice  *decimal.Decimal
	SpecialPrice *decimal.Decimal
}

func (f priceFields) equal(o priceFields) bool {
	return f.Price.Round(2).Equal(o.Price.Round(2)) &&
		model.DecimalEqual(f.UnitPrice, o.UnitPrice) &&
		model.DecimalEqual(f.BestPrice30, o.BestPrice30) &&
		model.DecimalEqual(f.AnchorPrice, o.AnchorPrice) &&
		model.DecimalEqual(f.SpecialPrice, o.SpecialPrice)
}

type latestPrice struct {
	id        int64
	validDate string // YYYY-MM-DD
	fields    priceFields
}

// Reconcile upserts one chain's crawl result for date into the price
// history. The whole call runs in a single transaction; any error rolls
// everything back. Running it twice with identical input is a no-op after
// the first run.
//
// The upsert order Chains, Products, Stores, StoreProducts, Prices follows
// the foreign-key dependencies, each layer flushing once so the next can
// consume generated ids from its cache.
func (db *DB) Reconcile(ctx context.Context, date time.Time, chainSlug string, stores []model.Store) (Stats, error) {
	var stats Stats
	if !model.ValidSlug(chainSlug) {
		return stats, fmt.Errorf("reconcile: invalid chain slug %q", chainSlug)
	}
	day := date.Format("2006-01-02")

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("reconcile: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Products failing validation are dropped here with a warning; the CSV
	// output upstream keeps them.
	valid := filterValid(chainSlug, stores, &stats)

	chainID, err := upsertChain(ctx, tx, chainSlug)
	if err != nil {
		return stats, err
	}

	if err := upsertProducts(ctx, tx, chainSlug, valid); err != nil {
		return stats, err
	}

	storeIDs, err := upsertStores(ctx, tx, chainID, valid)
	if err != nil {
		return stats, err
	}

	storeProducts, err := upsertStoreProducts(ctx, tx, chainSlug, valid, storeIDs)
	if err != nil {
		return stats, err
	}

	if err := reconcilePrices(ctx, tx, day, valid, storeIDs, storeProducts, &stats); err != nil {
		return stats, err
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("reconcile: commit: %w", err)
	}

	log.Info().
		Str("chain", chainSlug).
		Str("date", day).
		Int("added", stats.PricesAdded).
		Int("updated", stats.PricesUpdated).
		Int("unchanged", stats.PricesUnchanged).
		Int("duplicates", stats.Duplicates).
		Int("invalid", stats.Invalid).
		Msg("Reconciled chain")
	return stats, nil
}

// filterValid drops products that violate the model invariants and returns
// stores with only the surviving products.
func filterValid(chainSlug string, stores []model.Store, stats *Stats) []model.Store {
	out := make([]model.Store, 0, len(stores))
	for _, store := range stores {
		if err := store.Validate(); err != nil {
			log.Warn().Str("chain", chainSlug).Err(err).Msg("Skipping invalid store")
			continue
		}
		kept := store
		kept.Items = make([]model.Product, 0, len(store.Items))
		for _, p := range store.Items {
			p.Normalize()
			if err := p.Validate(); err != nil {
				stats.Invalid++
				log.Warn().
					Str("chain", chainSlug).
					Str("store", store.StoreID).
					Err(err).
					Msg("Skipping invalid product")
				continue
			}
			kept.Items = append(kept.Items, p)
		}
		out = append(out, kept)
	}
	return out
}

// effectiveBarcode applies the catalog key rule and the column length cap.
func effectiveBarcode(chainSlug string, p model.Product) string {
	barcode := model.EffectiveBarcode(chainSlug, p.ProductID, p.Barcode)
	if len(barcode) > barcodeMaxLen {
		barcode = barcode[:barcodeMaxLen]
	}
	return barcode
}

func upsertChain(ctx context.Context, tx pgx.Tx, slug string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM chains WHERE slug = $1`, slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reconcile: load chain: %w", err)
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO chains (name, slug) VALUES ($1, $1) RETURNING id`, slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reconcile: insert chain: %w", err)
	}
	return id, nil
}

// upsertProducts inserts catalog rows for barcodes not yet known. The
// descriptive fields are set at first sighting and never updated.
func upsertProducts(ctx context.Context, tx pgx.Tx, chainSlug string, stores []model.Store) error {
	known := make(map[string]bool)
	rows, err := tx.Query(ctx, `SELECT barcode FROM products`)
	if err != nil {
		return fmt.Errorf("reconcile: load products: %w", err)
	}
	for rows.Next() {
		var barcode string
		if err := rows.Scan(&barcode); err != nil {
			rows.Close()
			return fmt.Errorf("reconcile: scan product: %w", err)
		}
		known[barcode] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reconcile: load products: %w", err)
	}

	batch := &pgx.Batch{}
	for _, store := range stores {
		for _, p := range store.Items {
			barcode := effectiveBarcode(chainSlug, p)
			if known[barcode] {
				continue
			}
			known[barcode] = true
			batch.Queue(
				`INSERT INTO products (barcode, ext_name, ext_brand, ext_category, ext_unit, ext_quantity)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				barcode, p.Name, p.Brand, p.Category, p.Unit, p.Quantity)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("reconcile: insert products: %w", err)
	}
	return nil
}

// upsertStores creates missing stores and refreshes the descriptive fields
// of existing ones from the latest input. Returns ext_store_id → row id for
// every store in the input.
func upsertStores(ctx context.Context, tx pgx.Tx, chainID int64, stores []model.Store) (map[string]int64, error) {
	existing := make(map[string]int64)
	rows, err := tx.Query(ctx, `SELECT id, ext_store_id FROM stores WHERE chain_id = $1`, chainID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: load stores: %w", err)
	}
	for rows.Next() {
		var id int64
		var extID string
		if err := rows.Scan(&id, &extID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("reconcile: scan store: %w", err)
		}
		existing[extID] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reconcile: load stores: %w", err)
	}

	ids := make(map[string]int64, len(stores))
	for _, store := range stores {
		if id, ok := existing[store.StoreID]; ok {
			_, err := tx.Exec(ctx,
				`UPDATE stores
				 SET ext_name = $1, ext_store_type = $2, ext_street_address = $3, ext_city = $4, ext_zipcode = $5
				 WHERE id = $6`,
				store.Name, store.StoreType, store.StreetAddress, store.City, store.Zipcode, id)
			if err != nil {
				return nil, fmt.Errorf("reconcile: update store %s: %w", store.StoreID, err)
			}
			ids[store.StoreID] = id
			continue
		}

		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO stores (chain_id, ext_store_id, ext_name, ext_store_type, ext_street_address, ext_city, ext_zipcode)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			chainID, store.StoreID, store.Name, store.StoreType, store.StreetAddress, store.City, store.Zipcode).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("reconcile: insert store %s: %w", store.StoreID, err)
		}
		existing[store.StoreID] = id
		ids[store.StoreID] = id
	}
	return ids, nil
}

type storeProductKey struct {
	storeID      int64
	extProductID string
}

// upsertStoreProducts links each (store, product) pair, keeping the original
// barcode of links that already exist. Returns the full key → id map for the
// touched stores.
func upsertStoreProducts(ctx context.Context, tx pgx.Tx, chainSlug string, stores []model.Store, storeIDs map[string]int64) (map[storeProductKey]int64, error) {
	touched := make([]int64, 0, len(storeIDs))
	for _, id := range storeIDs {
		touched = append(touched, id)
	}

	links := make(map[storeProductKey]int64)
	if len(touched) > 0 {
		rows, err := tx.Query(ctx,
			`SELECT id, store_id, ext_product_id FROM store_products WHERE store_id = ANY($1)`, touched)
		if err != nil {
			return nil, fmt.Errorf("reconcile: load store products: %w", err)
		}
		for rows.Next() {
			var id, storeID int64
			var extProductID string
			if err := rows.Scan(&id, &storeID, &extProductID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("reconcile: scan store product: %w", err)
			}
			links[storeProductKey{storeID, extProductID}] = id
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reconcile: load store products: %w", err)
		}
	}

	batch := &pgx.Batch{}
	var keys []storeProductKey
	for _, store := range stores {
		storeID := storeIDs[store.StoreID]
		for _, p := range store.Items {
			key := storeProductKey{storeID, p.ProductID}
			if _, ok := links[key]; ok {
				continue
			}
			// Placeholder so a duplicate later in the batch is not queued
			// twice; the real id lands below.
			links[key] = 0
			keys = append(keys, key)
			batch.Queue(
				`INSERT INTO store_products (store_id, barcode, ext_product_id)
				 VALUES ($1, $2, $3) RETURNING id`,
				storeID, effectiveBarcode(chainSlug, p), p.ProductID)
		}
	}
	if batch.Len() == 0 {
		return links, nil
	}

	br := tx.SendBatch(ctx, batch)
	for _, key := range keys {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			br.Close()
			return nil, fmt.Errorf("reconcile: insert store product: %w", err)
		}
		links[key] = id
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("reconcile: insert store products: %w", err)
	}
	return links, nil
}

// reconcilePrices applies the change-detection rules per store. For each
// store one query fetches the latest price row at or before day for every
// store product; each input product is then either an in-place same-day
// update, a new row, or nothing when the latest prior row already carries
// identical prices.
func reconcilePrices(ctx context.Context, tx pgx.Tx, day string, stores []model.Store, storeIDs map[string]int64, links map[storeProductKey]int64, stats *Stats) error {
	batch := &pgx.Batch{}

	// Deduplication spans the whole call: the same physical store may arrive
	// split across several Store entries (one per upstream file), and a second
	// queued row for the same (store_product, day) would violate the unique
	// constraint and roll the chain back.
	seen := make(map[storeProductKey]bool)

	for _, store := range stores {
		storeID := storeIDs[store.StoreID]

		spIDs := make([]int64, 0, len(store.Items))
		for _, p := range store.Items {
			if id, ok := links[storeProductKey{storeID, p.ProductID}]; ok {
				spIDs = append(spIDs, id)
			}
		}

		latest, err := loadLatestPrices(ctx, tx, spIDs, day)
		if err != nil {
			return err
		}

		for _, p := range store.Items {
			key := storeProductKey{storeID, p.ProductID}
			if seen[key] {
				stats.Duplicates++
				log.Warn().Str("store_id", store.StoreID).Str("product_id", p.ProductID).
					Msg("Duplicate product in store input, keeping first occurrence")
				continue
			}
			seen[key] = true

			spID := links[key]
			incoming := priceFields{
				Price:        p.Price.Round(2),
				UnitPrice:    model.Round2Ptr(p.UnitPrice),
				BestPrice30:  model.Round2Ptr(p.BestPrice30),
				AnchorPrice:  model.Round2Ptr(p.AnchorPrice),
				SpecialPrice: model.Round2Ptr(p.SpecialPrice),
			}

			prior, ok := latest[spID]
			switch {
			case ok && prior.validDate == day:
				if incoming.equal(prior.fields) {
					stats.PricesUnchanged++
					continue
				}
				batch.Queue(
					`UPDATE product_prices
					 SET price = $1, unit_price = $2, best_price_30 = $3, anchor_price = $4, special_price = $5
					 WHERE id = $6`,
					incoming.Price.StringFixed(2),
					decParam(incoming.UnitPrice),
					decParam(incoming.BestPrice30),
					decParam(incoming.AnchorPrice),
					decParam(incoming.SpecialPrice),
					prior.id)
				stats.PricesUpdated++

			case ok && incoming.equal(prior.fields):
				// Latest prior row is identical: sparse history, no new row.
				stats.PricesUnchanged++

			default:
				batch.Queue(
					`INSERT INTO product_prices (store_product_id, valid_date, price, unit_price, best_price_30, anchor_price, special_price)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					spID, day,
					incoming.Price.StringFixed(2),
					decParam(incoming.UnitPrice),
					decParam(incoming.BestPrice30),
					decParam(incoming.AnchorPrice),
					decParam(incoming.SpecialPrice))
				stats.PricesAdded++
			}
		}
	}

	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("reconcile: write prices: %w", err)
	}
	return nil
}

// loadLatestPrices returns, per store product, its most recent price row
// with valid_date at or before day. Decimals travel as text to keep the
// exact two-place values.
func loadLatestPrices(ctx context.Context, tx pgx.Tx, spIDs []int64, day string) (map[int64]latestPrice, error) {
	latest := make(map[int64]latestPrice, len(spIDs))
	if len(spIDs) == 0 {
		return latest, nil
	}

	rows, err := tx.Query(ctx,
		`SELECT DISTINCT ON (store_product_id)
		        id, store_product_id, to_char(valid_date, 'YYYY-MM-DD'),
		        price::text, unit_price::text, best_price_30::text, anchor_price::text, special_price::text
		 FROM product_prices
		 WHERE store_product_id = ANY($1) AND valid_date <= $2
		 ORDER BY store_product_id, valid_date DESC`,
		spIDs, day)
	if err != nil {
		return nil, fmt.Errorf("reconcile: load latest prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lp latestPrice
		var spID int64
		var price string
		var unitPrice, bestPrice30, anchorPrice, specialPrice *string
		if err := rows.Scan(&lp.id, &spID, &lp.validDate, &price, &unitPrice, &bestPrice30, &anchorPrice, &specialPrice); err != nil {
			return nil, fmt.Errorf("reconcile: scan latest price: %w", err)
		}

		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("reconcile: bad stored price %q: %w", price, err)
		}
		lp.fields = priceFields{
			Price:        p,
			UnitPrice:    decFromText(unitPrice),
			BestPrice30:  decFromText(bestPrice30),
			AnchorPrice:  decFromText(anchorPrice),
			SpecialPrice: decFromText(specialPrice),
		}
		latest[spID] = lp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reconcile: load latest prices: %w", err)
	}
	return latest, nil
}

// decParam renders an optional decimal as a SQL parameter; nil maps to NULL.
func decParam(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}

func decFromText(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}
