package chains

import (
	"regexp"
	"strings"

	"github.com/kosarica/price-crawler/internal/model"
)

var (
	storeIDPattern = regexp.MustCompile(`,\s*(\d{3,5})\s*,`)
	zipcodePattern = regexp.MustCompile(`\b(\d{5})\b`)
)

// storeFromFilename builds a store from a comma-separated price file name of
// the form used by Konzum and several smaller chains:
//
//	STORETYPE,STREET 12 10000 CITY,STORE_ID,DATE,TIME.csv
//
// The address segment packs street, a five-digit zipcode and city into one
// field; the zipcode splits it. Missing segments leave the corresponding
// store fields empty.
func storeFromFilename(chain, filename string) model.Store {
	base := filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.ReplaceAll(base, "_", " ")

	store := model.Store{Chain: chain}

	parts := strings.Split(base, ",")
	if len(parts) >= 3 {
		store.StoreType = strings.TrimSpace(parts[0])

		address := strings.TrimSpace(strings.ReplaceAll(parts[1], "+", " "))
		if m := zipcodePattern.FindStringIndex(address); m != nil {
			store.StreetAddress = strings.TrimSpace(address[:m[0]])
			store.Zipcode = address[m[0]:m[1]]
			store.City = strings.TrimSpace(address[m[1]:])
		} else {
			store.StreetAddress = address
		}
	}

	if m := storeIDPattern.FindStringSubmatch(base); len(m) >= 2 {
		store.StoreID = m[1]
	} else if len(parts) >= 3 {
		store.StoreID = strings.TrimSpace(parts[2])
	}

	nameParts := make([]string, 0, 3)
	for _, part := range []string{store.StoreType, store.StreetAddress, store.City} {
		if part != "" {
			nameParts = append(nameParts, part)
		}
	}
	store.Name = strings.Join(nameParts, " ")

	store.Normalize()
	return store
}
