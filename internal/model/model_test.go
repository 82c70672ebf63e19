package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveBarcode(t *testing.T) {
	tests := []struct {
		name      string
		barcode   string
		productID string
		expected  string
	}{
		{"valid EAN-13", "3858881583733", "P1", "3858881583733"},
		{"valid EAN-8", "12345678", "P1", "12345678"},
		{"too short", "1234567", "P1", "acme:P1"},
		{"empty", "", "P1", "acme:P1"},
		{"non-digit", "12345678A", "P1", "acme:P1"},
		{"spaces", "1234 5678", "P1", "acme:P1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectiveBarcode("acme", tt.productID, tt.barcode))
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"10.995", "11.00"},
		{"10.994", "10.99"},
		{"1.005", "1.01"},
		{"2", "2.00"},
		{"0.1", "0.10"},
	}

	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, Round2(d).StringFixed(2), "input %s", tt.in)
	}
}

func TestDecimalEqual(t *testing.T) {
	one := Dec("1.00")
	alsoOne := Dec("1")
	two := Dec("2.00")
	zero := Dec("0")

	assert.True(t, DecimalEqual(nil, nil))
	assert.True(t, DecimalEqual(one, alsoOne))
	assert.False(t, DecimalEqual(one, two))

	// Absent is not zero.
	assert.False(t, DecimalEqual(nil, zero))
	assert.False(t, DecimalEqual(zero, nil))
}

func TestProductValidate(t *testing.T) {
	p := Product{ProductID: "P1", Price: Dec("1.99")}
	assert.NoError(t, p.Validate())

	missing := Product{ProductID: "P1"}
	assert.Error(t, missing.Validate())

	noID := Product{Price: Dec("1.99")}
	assert.Error(t, noID.Validate())

	negative := Product{ProductID: "P1", Price: Dec("1.99"), AnchorPrice: Dec("-0.01")}
	assert.Error(t, negative.Validate())
}

func TestProductNormalize(t *testing.T) {
	p := Product{
		ProductID: " P1 ",
		Name:      "  Mlijeko 2.8%  ",
		Price:     Dec("10.995"),
	}
	p.Normalize()

	assert.Equal(t, "P1", p.ProductID)
	assert.Equal(t, "Mlijeko 2.8%", p.Name)
	assert.Equal(t, "11.00", p.Price.StringFixed(2))
	assert.Nil(t, p.UnitPrice)
}

func TestProductEqual(t *testing.T) {
	base := Product{ProductID: "P1", Name: "Kruh", Price: Dec("1.99"), SpecialPrice: Dec("1.49")}

	same := base
	same.Price = Dec("1.990")
	assert.True(t, base.Equal(same))

	changed := base
	changed.Price = Dec("2.09")
	assert.False(t, base.Equal(changed))

	dropped := base
	dropped.SpecialPrice = nil
	assert.False(t, base.Equal(dropped))

	repacked := base
	repacked.Packaging = "boca"
	assert.False(t, base.Equal(repacked))

	discounted := base
	discounted.InitialPrice = Dec("2.49")
	assert.False(t, base.Equal(discounted))
}

func TestStoreValidate(t *testing.T) {
	assert.NoError(t, (&Store{Chain: "konzum", StoreID: "0204"}).Validate())
	assert.Error(t, (&Store{Chain: "Konzum", StoreID: "0204"}).Validate())
	assert.Error(t, (&Store{Chain: "konzum"}).Validate())
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("dm"))
	assert.True(t, ValidSlug("studenac_market"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("DM"))
	assert.False(t, ValidSlug("dm-hr"))
}
