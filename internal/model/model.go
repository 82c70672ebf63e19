// Package model defines the canonical in-memory contract shared by the
// chain sources, the CSV layer and the database reconciler. A Store owns
// its Products; there are no back-pointers.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// barcodePattern matches an upstream barcode usable as a global catalog key:
// decimal digits only, at least 8 of them (EAN-8 and longer).
var barcodePattern = regexp.MustCompile(`^[0-9]{8,}$`)

// slugPattern matches a chain slug: lowercase alphanumeric plus underscore.
var slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Product is a single product observation within a store.
//
// All monetary fields are fixed-point decimals with two fractional digits,
// rounded half-up at storage time. Price is required; the remaining decimal
// fields are optional and nil means "not published", which is distinct
// from zero.
type Product struct {
	ProductID string // chain-local identifier, required
	Name      string
	Brand     string
	Category  string
	Unit      string
	Quantity  string
	Packaging string
	Barcode   string // may be empty or invalid; see EffectiveBarcode

	Price        *decimal.Decimal // required
	UnitPrice    *decimal.Decimal
	BestPrice30  *decimal.Decimal
	AnchorPrice  *decimal.Decimal
	SpecialPrice *decimal.Decimal
	InitialPrice *decimal.Decimal

	AnchorPriceDate string
	DateAdded       *time.Time
}

// Store is a single store location of a chain together with the products
// observed there. (Chain, StoreID) uniquely identifies a store.
type Store struct {
	Chain         string // lowercase slug
	StoreID       string // chain-local identifier
	Name          string
	StoreType     string
	City          string
	StreetAddress string
	Zipcode       string
	Items         []Product
}

// Round2 normalizes a decimal to exactly two fractional digits, half-up.
// Prices are non-negative, so round-half-away-from-zero is half-up here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round2Ptr normalizes an optional decimal; nil stays nil.
func Round2Ptr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

// DecimalEqual reports whether two optional decimals are equal after
// normalization. nil equals only nil: an absent value never equals zero.
func DecimalEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Round(2).Equal(b.Round(2))
}

// ValidBarcode reports whether an upstream barcode can serve as a global
// catalog key.
func ValidBarcode(barcode string) bool {
	return barcodePattern.MatchString(barcode)
}

// SyntheticBarcode builds the fallback catalog key for products without a
// usable upstream barcode.
func SyntheticBarcode(chain, productID string) string {
	return chain + ":" + productID
}

// EffectiveBarcode returns the upstream barcode when it is a digit string of
// length >= 8, and the synthetic "{chain}:{product_id}" key otherwise.
func EffectiveBarcode(chain, productID, barcode string) string {
	if ValidBarcode(barcode) {
		return barcode
	}
	return SyntheticBarcode(chain, productID)
}

// ValidSlug reports whether s is a well-formed chain slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Normalize trims surrounding whitespace from all string fields and rounds
// all decimal fields to two places.
func (p *Product) Normalize() {
	p.ProductID = strings.TrimSpace(p.ProductID)
	p.Name = strings.TrimSpace(p.Name)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Category = strings.TrimSpace(p.Category)
	p.Unit = strings.TrimSpace(p.Unit)
	p.Quantity = strings.TrimSpace(p.Quantity)
	p.Packaging = strings.TrimSpace(p.Packaging)
	p.Barcode = strings.TrimSpace(p.Barcode)
	p.AnchorPriceDate = strings.TrimSpace(p.AnchorPriceDate)

	p.Price = Round2Ptr(p.Price)
	p.UnitPrice = Round2Ptr(p.UnitPrice)
	p.BestPrice30 = Round2Ptr(p.BestPrice30)
	p.AnchorPrice = Round2Ptr(p.AnchorPrice)
	p.SpecialPrice = Round2Ptr(p.SpecialPrice)
	p.InitialPrice = Round2Ptr(p.InitialPrice)
}

// Validate checks the product invariants: product_id present, price present
// and all decimals non-negative.
func (p *Product) Validate() error {
	if p.ProductID == "" {
		return fmt.Errorf("product: missing product_id")
	}
	if p.Price == nil {
		return fmt.Errorf("product %s: missing price", p.ProductID)
	}
	for name, d := range map[string]*decimal.Decimal{
		"price":         p.Price,
		"unit_price":    p.UnitPrice,
		"best_price_30": p.BestPrice30,
		"anchor_price":  p.AnchorPrice,
		"special_price": p.SpecialPrice,
		"initial_price": p.InitialPrice,
	} {
		if d != nil && d.IsNegative() {
			return fmt.Errorf("product %s: negative %s", p.ProductID, name)
		}
	}
	return nil
}

// Equal reports whether two products are equal in all identifying and price
// fields, comparing decimals under two-place normalization.
func (p Product) Equal(o Product) bool {
	return p.ProductID == o.ProductID &&
		p.Name == o.Name &&
		p.Brand == o.Brand &&
		p.Category == o.Category &&
		p.Unit == o.Unit &&
		p.Quantity == o.Quantity &&
		p.Packaging == o.Packaging &&
		p.Barcode == o.Barcode &&
		DecimalEqual(p.Price, o.Price) &&
		DecimalEqual(p.UnitPrice, o.UnitPrice) &&
		DecimalEqual(p.BestPrice30, o.BestPrice30) &&
		DecimalEqual(p.AnchorPrice, o.AnchorPrice) &&
		DecimalEqual(p.SpecialPrice, o.SpecialPrice) &&
		DecimalEqual(p.InitialPrice, o.InitialPrice)
}

// Validate checks the store invariants: well-formed chain slug and a
// non-empty store id.
func (s *Store) Validate() error {
	if !ValidSlug(s.Chain) {
		return fmt.Errorf("store: invalid chain slug %q", s.Chain)
	}
	if strings.TrimSpace(s.StoreID) == "" {
		return fmt.Errorf("store: missing store_id for chain %s", s.Chain)
	}
	return nil
}

// Normalize trims surrounding whitespace from all store string fields and
// normalizes every contained product.
func (s *Store) Normalize() {
	s.Chain = strings.TrimSpace(s.Chain)
	s.StoreID = strings.TrimSpace(s.StoreID)
	s.Name = strings.TrimSpace(s.Name)
	s.StoreType = strings.TrimSpace(s.StoreType)
	s.City = strings.TrimSpace(s.City)
	s.StreetAddress = strings.TrimSpace(s.StreetAddress)
	s.Zipcode = strings.TrimSpace(s.Zipcode)
	for i := range s.Items {
		s.Items[i].Normalize()
	}
}

// Dec is a convenience constructor used by sources and tests.
func Dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("model.Dec: bad decimal %q", s))
	}
	return &d
}
