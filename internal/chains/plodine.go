package chains

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kosarica/price-crawler/internal/httpx"
	"github.com/kosarica/price-crawler/internal/model"
)

const plodineBaseURL = "https://www.plodine.hr/info-o-cijenama"

var (
	// ZIP links carry the publication date as DD_MM_YYYY plus a timestamp:
	// .../cjenici_02_06_2025_07_30_01.zip
	plodineZipPattern = regexp.MustCompile(`href=["']([^"']*cjenici_(\d{2}_\d{2}_\d{4})_\d{2}_\d{2}_\d{2}\.zip)["']`)

	// Per-store file names inside the bundle: TYPE_STREET_..._ZIPCODE_CITY_STOREID_SEQ_DATE.csv
	plodineZip5 = regexp.MustCompile(`^\d{5}$`)

	// Plodine omits leading zeros in sub-unit prices (";,69" means ";0,69")
	// and suffixes the anchor price header with a date.
	plodineBareDecimal = regexp.MustCompile(`([;"]|^),(\d)`)
	plodineAnchorDate  = regexp.MustCompile(`Sidrena cijena na \d+\.\d+\.\d+\.?`)
)

// PlodineSource crawls the Plodine price portal. The portal publishes one
// ZIP bundle per day containing one CSV per store.
type PlodineSource struct {
	client  *httpx.Client
	baseURL string
}

// NewPlodineSource creates the Plodine source with default pacing.
func NewPlodineSource() *PlodineSource {
	return &PlodineSource{
		client:  httpx.NewClientDefault(),
		baseURL: plodineBaseURL,
	}
}

func (s *PlodineSource) Slug() string { return "plodine" }

// Fetch locates the date's ZIP bundle on the portal index, downloads it and
// parses every per-store CSV it contains.
func (s *PlodineSource) Fetch(ctx context.Context, date time.Time) ([]model.Store, error) {
	body, err := s.client.GetBytes(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("plodine: fetch index: %w", err)
	}

	wantDate := date.Format("02_01_2006")
	zipURL := ""
	for _, match := range plodineZipPattern.FindAllStringSubmatch(string(body), -1) {
		if match[2] != wantDate {
			continue
		}
		zipURL = match[1]
		if !strings.HasPrefix(zipURL, "http") {
			zipURL = "https://www.plodine.hr" + zipURL
		}
		break
	}
	if zipURL == "" {
		log.Warn().Str("chain", s.Slug()).Str("date", date.Format("2006-01-02")).Msg("No price bundle published")
		return nil, nil
	}

	bundle, err := s.client.GetBytes(ctx, zipURL)
	if err != nil {
		return nil, fmt.Errorf("plodine: download bundle: %w", err)
	}
	return s.parseBundle(bundle)
}

func (s *PlodineSource) parseBundle(bundle []byte) ([]model.Store, error) {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return nil, fmt.Errorf("plodine: open bundle: %w", err)
	}

	var stores []model.Store
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("plodine: open %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("plodine: read %s: %w", entry.Name, err)
		}

		store := plodineStoreFromFilename(entry.Name)
		if store.StoreID == "" {
			log.Warn().Str("chain", s.Slug()).Str("filename", entry.Name).Msg("Cannot determine store id, skipping file")
			continue
		}

		items, err := parseProducts(s.Slug(), plodinePreprocess(data), croatianMapping)
		if err != nil {
			return nil, fmt.Errorf("plodine: parse %s: %w", entry.Name, err)
		}
		store.Items = items
		stores = append(stores, store)
	}
	return stores, nil
}

// plodinePreprocess fixes the bundle's formatting quirks before parsing.
func plodinePreprocess(data []byte) []byte {
	text := plodineAnchorDate.ReplaceAllString(string(data), "Sidrena cijena")
	text = plodineBareDecimal.ReplaceAllString(text, "${1}0,$2")
	return []byte(text)
}

// plodineStoreFromFilename parses the underscore-separated per-store file
// name: TYPE_STREET..._ZIPCODE_CITY_STOREID_SEQ_DATE.csv. The zipcode is the
// first five-digit segment and anchors the split.
func plodineStoreFromFilename(filename string) model.Store {
	base := filename
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}

	store := model.Store{Chain: "plodine"}
	parts := strings.Split(base, "_")
	if len(parts) < 6 {
		return store
	}

	zipIdx := -1
	for i := 1; i < len(parts)-3; i++ {
		if plodineZip5.MatchString(parts[i]) {
			zipIdx = i
			break
		}
	}
	if zipIdx == -1 {
		return store
	}

	store.StoreType = parts[0]
	store.StreetAddress = strings.Join(parts[1:zipIdx], " ")
	store.Zipcode = parts[zipIdx]
	store.City = parts[zipIdx+1]
	if zipIdx+2 < len(parts) {
		store.StoreID = parts[zipIdx+2]
	}
	store.Name = strings.TrimSpace("Plodine " + store.City)
	store.Normalize()
	return store
}
