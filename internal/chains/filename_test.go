package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreFromFilename(t *testing.T) {
	store := storeFromFilename("konzum", "SUPERMARKET,ZITNA 1A 10310 IVANIC GRAD,0204,20250510,0730.csv")

	assert.Equal(t, "konzum", store.Chain)
	assert.Equal(t, "0204", store.StoreID)
	assert.Equal(t, "SUPERMARKET", store.StoreType)
	assert.Equal(t, "ZITNA 1A", store.StreetAddress)
	assert.Equal(t, "10310", store.Zipcode)
	assert.Equal(t, "IVANIC GRAD", store.City)
	assert.Equal(t, "SUPERMARKET ZITNA 1A IVANIC GRAD", store.Name)
}

func TestStoreFromFilenameNoZipcode(t *testing.T) {
	store := storeFromFilename("ktc", "MARKET,TRG BANA JELACICA BB,012,20250510.csv")

	assert.Equal(t, "012", store.StoreID)
	assert.Equal(t, "TRG BANA JELACICA BB", store.StreetAddress)
	assert.Equal(t, "", store.Zipcode)
	assert.Equal(t, "", store.City)
}

func TestStoreFromFilenameUnparseable(t *testing.T) {
	store := storeFromFilename("ktc", "cjenik.csv")
	assert.Equal(t, "", store.StoreID)
}

func TestPlodineStoreFromFilename(t *testing.T) {
	store := plodineStoreFromFilename("SUPERMARKET_VUKOVARSKA_20_51000_RIJEKA_017_1_20250510.csv")

	assert.Equal(t, "plodine", store.Chain)
	assert.Equal(t, "017", store.StoreID)
	assert.Equal(t, "SUPERMARKET", store.StoreType)
	assert.Equal(t, "VUKOVARSKA 20", store.StreetAddress)
	assert.Equal(t, "51000", store.Zipcode)
	assert.Equal(t, "RIJEKA", store.City)
	assert.Equal(t, "Plodine RIJEKA", store.Name)
}

func TestPlodinePreprocess(t *testing.T) {
	in := []byte("Naziv;Sidrena cijena na 2.5.2025;Cijena\nKruh;,99;;,69\n")
	out := string(plodinePreprocess(in))

	assert.Contains(t, out, "Sidrena cijena;")
	assert.Contains(t, out, ";0,99")
	assert.Contains(t, out, ";0,69")
}
