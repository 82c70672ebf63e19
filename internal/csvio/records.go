// Package csvio serializes chain data to the canonical stores/products/prices
// CSV files and rehydrates it back into the in-memory model.
package csvio

// StoreRecord is one row of stores.csv.
type StoreRecord struct {
	StoreID string `json:"store_id"`
	Type    string `json:"type"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// ProductRecord is one row of products.csv. Rows are de-duplicated by the
// "{chain}:{product_id}" key; the first occurrence wins. Barcode carries the
// upstream value, or that same key when the upstream barcode is empty.
type ProductRecord struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Category  string `json:"category"`
	Unit      string `json:"unit"`
	Quantity  string `json:"quantity"`
}

// PriceRecord is one row of prices.csv. Decimal fields are rendered with two
// fractional digits; absent optionals render as the empty string, never "0".
type PriceRecord struct {
	StoreID      string `json:"store_id"`
	ProductID    string `json:"product_id"`
	Price        string `json:"price"`
	UnitPrice    string `json:"unit_price"`
	BestPrice30  string `json:"best_price_30"`
	AnchorPrice  string `json:"anchor_price"`
	SpecialPrice string `json:"special_price"`
}

// Column sets of the canonical files, in output order.
var (
	StoreColumns   = []string{"store_id", "type", "address", "city", "zipcode"}
	ProductColumns = []string{"product_id", "barcode", "name", "brand", "category", "unit", "quantity"}
	PriceColumns   = []string{"store_id", "product_id", "price", "unit_price", "best_price_30", "anchor_price", "special_price"}
)

const (
	StoresFile   = "stores.csv"
	ProductsFile = "products.csv"
	PricesFile   = "prices.csv"
)
