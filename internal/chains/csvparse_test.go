package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/price-crawler/internal/model"
)

func TestFoldHeader(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"ŠIFRA PROIZVODA", "sifra proizvoda"},
		{"Najniža  cijena", "najniza cijena"},
		{"  Neto količina ", "neto kolicina"},
		{"Marka", "marka"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, foldHeader(tt.in), "input %q", tt.in)
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', detectDelimiter("a;b;c\n1;2;3\n"))
	assert.Equal(t, ',', detectDelimiter("a,b,c\n1,2,3\n"))
	assert.Equal(t, '\t', detectDelimiter("a\tb\tc\n1\t2\t3\n"))
	assert.Equal(t, ',', detectDelimiter(""))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in       string
		expected string // "" means nil
	}{
		{"1,99", "1.99"},
		{"1.99", "1.99"},
		{"1.234,56", "1234.56"},
		{"2,50 €", "2.50"},
		{"10,995", "11.00"},
		{"", ""},
		{"-", ""},
		{"n/a", ""},
	}

	for _, tt := range tests {
		got := parsePrice(tt.in)
		if tt.expected == "" {
			assert.Nil(t, got, "input %q", tt.in)
			continue
		}
		require.NotNil(t, got, "input %q", tt.in)
		assert.Equal(t, tt.expected, got.StringFixed(2), "input %q", tt.in)
	}
}

func TestParseProducts(t *testing.T) {
	data := []byte(
		"NAZIV PROIZVODA;ŠIFRA PROIZVODA;MARKA PROIZVODA;NETO KOLIČINA;JEDINICA MJERE;MALOPRODAJNA CIJENA;CIJENA ZA JEDINICU MJERE;BARKOD;KATEGORIJA PROIZVODA\n" +
			"Mlijeko 2.8%;101;Dukat;1;l;1,99;1,99;3858881583733;mlijecni\n" +
			"Kruh polubijeli;102;;0,5;kg;1,10;2,20;;pekarski\n" +
			";;;;;;;;\n" +
			"Bez cijene;103;;;kom;;;;ostalo\n")

	products, err := parseProducts("konzum", data, croatianMapping)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "101", products[0].ProductID)
	assert.Equal(t, "Mlijeko 2.8%", products[0].Name)
	assert.Equal(t, "3858881583733", products[0].Barcode)
	assert.True(t, model.DecimalEqual(model.Dec("1.99"), products[0].Price))

	assert.Equal(t, "102", products[1].ProductID)
	assert.Equal(t, "", products[1].Barcode)
	assert.True(t, model.DecimalEqual(model.Dec("2.20"), products[1].UnitPrice))
}

func TestParseProductsDiacriticFreeHeaders(t *testing.T) {
	// Some chains publish the mandated headers without diacritics.
	data := []byte(
		"Naziv proizvoda;Sifra proizvoda;Maloprodajna cijena\n" +
			"Jogurt;201;0,89\n")

	products, err := parseProducts("plodine", data, croatianMapping)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "201", products[0].ProductID)
	assert.True(t, model.DecimalEqual(model.Dec("0.89"), products[0].Price))
}

func TestParseProductsWindows1250(t *testing.T) {
	// "ŠIFRA PROIZVODA" with Š as 0x8A and "NAZIV" plain; č in content as 0xE8.
	header := []byte("NAZIV PROIZVODA;\x8aIFRA PROIZVODA;MALOPRODAJNA CIJENA\n")
	row := []byte("Kava mljevena - vre\xe6ica;301;3,49\n")

	products, err := parseProducts("ktc", append(header, row...), croatianMapping)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Kava mljevena - vrećica", products[0].Name)
	assert.Equal(t, "301", products[0].ProductID)
}

func TestParseProductsMissingRequiredColumn(t *testing.T) {
	data := []byte("NAZIV PROIZVODA;ŠIFRA PROIZVODA\nKruh;101\n")
	_, err := parseProducts("konzum", data, croatianMapping)
	assert.Error(t, err)
}
