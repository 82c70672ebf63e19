package chains

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/price-crawler/internal/model"
)

func buildDmWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)

	require.NoError(t, wb.SetCellValue(sheet, "A1", "Cjenik dm-drogerie markt"))
	// Row 2 stays empty; row 3 is the header.
	header := []any{"naziv", "šifra", "marka", "barkod", "kategorija proizvoda",
		"neto količina", "Jedinica mjere", "Cijena za jedinicu mjere",
		"dostupno samo online", "MPC", "MPC za vrijeme posebnog oblika prodaje",
		"Najniža cijena u posljednjih 30 dana", "sidrena cijena"}
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &header))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, 4+i)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	return buf.Bytes()
}

func TestDmParseWorkbook(t *testing.T) {
	data := buildDmWorkbook(t, [][]any{
		{"Šampon", "401", "Balea", "4010355123456", "kozmetika", "300", "ml", "6,63", "ne", "1,99", "", "1,89", "2,19"},
		{"Bez cijene", "402", "", "", "", "", "", "", "ne", "", "", "", ""},
	})

	source := NewDmSource()
	products, err := source.parseWorkbook(data)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "401", p.ProductID)
	assert.Equal(t, "Šampon", p.Name)
	assert.Equal(t, "Balea", p.Brand)
	assert.Equal(t, "4010355123456", p.Barcode)
	assert.True(t, model.DecimalEqual(model.Dec("1.99"), p.Price))
	assert.True(t, model.DecimalEqual(model.Dec("6.63"), p.UnitPrice))
	assert.True(t, model.DecimalEqual(model.Dec("1.89"), p.BestPrice30))
	assert.True(t, model.DecimalEqual(model.Dec("2.19"), p.AnchorPrice))
	assert.Nil(t, p.SpecialPrice)
}

func TestDmParseWorkbookEmpty(t *testing.T) {
	data := buildDmWorkbook(t, nil)

	source := NewDmSource()
	products, err := source.parseWorkbook(data)
	require.NoError(t, err)
	assert.Empty(t, products)
}
