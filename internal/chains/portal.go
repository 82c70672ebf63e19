package chains

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kosarica/price-crawler/internal/httpx"
	"github.com/kosarica/price-crawler/internal/model"
)

// portalConfig describes a chain whose portal is a flat index page linking
// one CSV per store, with the publication date embedded in the file name.
// Several smaller chains share this shape and differ only in URLs and the
// date format they put in file names.
type portalConfig struct {
	slug        string
	indexURL    string
	linkPattern *regexp.Regexp // first capture group is the href
	dateLayout  string         // Go layout of the date embedded in file names
}

var (
	ktcConfig = portalConfig{
		slug:        "ktc",
		indexURL:    "https://www.ktc.hr/cjenici",
		linkPattern: regexp.MustCompile(`href=["']([^"']+\.csv)["']`),
		dateLayout:  "02_01_2006",
	}

	trgocentarConfig = portalConfig{
		slug:        "trgocentar",
		indexURL:    "https://trgocentar.com/Trgovine-cjenik/",
		linkPattern: regexp.MustCompile(`href=["']([^"']+\.csv)["']`),
		dateLayout:  "02012006",
	}

	eurospinConfig = portalConfig{
		slug:        "eurospin",
		indexURL:    "https://www.eurospin.hr/cjenik/",
		linkPattern: regexp.MustCompile(`href=["']([^"']+\.csv)["']`),
		dateLayout:  "2006-01-02",
	}
)

// PortalSource is the shared implementation for flat-index portal chains.
type PortalSource struct {
	client *httpx.Client
	config portalConfig
}

// NewPortalSource creates a source for one portal chain.
func NewPortalSource(config portalConfig) *PortalSource {
	return &PortalSource{
		client: httpx.NewClientDefault(),
		config: config,
	}
}

func (s *PortalSource) Slug() string { return s.config.slug }

// Fetch scans the portal index for CSV links whose file name carries the
// requested date, downloads each and parses it as one store.
func (s *PortalSource) Fetch(ctx context.Context, date time.Time) ([]model.Store, error) {
	body, err := s.client.GetBytes(ctx, s.config.indexURL)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch index: %w", s.config.slug, err)
	}

	wantDate := date.Format(s.config.dateLayout)
	seen := make(map[string]bool)
	var links []string
	for _, match := range s.config.linkPattern.FindAllStringSubmatch(string(body), -1) {
		href := match[1]
		if !strings.Contains(path.Base(href), wantDate) {
			continue
		}
		fileURL := s.resolveURL(href)
		if seen[fileURL] {
			continue
		}
		seen[fileURL] = true
		links = append(links, fileURL)
	}

	if len(links) == 0 {
		log.Warn().Str("chain", s.config.slug).Str("date", date.Format("2006-01-02")).Msg("No price files published")
		return nil, nil
	}

	stores := make([]model.Store, 0, len(links))
	for _, fileURL := range links {
		data, err := s.client.GetBytes(ctx, fileURL)
		if err != nil {
			return nil, fmt.Errorf("%s: download %s: %w", s.config.slug, fileURL, err)
		}

		filename, err := url.QueryUnescape(path.Base(fileURL))
		if err != nil {
			filename = path.Base(fileURL)
		}

		store := storeFromFilename(s.config.slug, filename)
		if store.StoreID == "" {
			log.Warn().Str("chain", s.config.slug).Str("filename", filename).Msg("Cannot determine store id, skipping file")
			continue
		}

		items, err := parseProducts(s.config.slug, data, croatianMapping)
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", s.config.slug, filename, err)
		}
		store.Items = items
		stores = append(stores, store)
	}
	return stores, nil
}

func (s *PortalSource) resolveURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(s.config.indexURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
