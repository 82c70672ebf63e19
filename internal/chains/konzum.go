package chains

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kosarica/price-crawler/internal/httpx"
	"github.com/kosarica/price-crawler/internal/model"
)

const (
	konzumBaseURL  = "https://www.konzum.hr/cjenici"
	konzumMaxPages = 50
)

// konzumDownloadPattern matches the per-store download links on a portal
// index page: href="/cjenici/download?title=<encoded filename>".
var konzumDownloadPattern = regexp.MustCompile(`href=["'](/cjenici/download\?title=([^"'&]+)[^"']*)["']`)

// KonzumSource crawls the Konzum price portal. The portal paginates an HTML
// index of per-store CSV files; the store identity is encoded in each file
// name.
type KonzumSource struct {
	client  *httpx.Client
	baseURL string
}

// NewKonzumSource creates the Konzum source with default pacing.
func NewKonzumSource() *KonzumSource {
	return &KonzumSource{
		client:  httpx.NewClientDefault(),
		baseURL: konzumBaseURL,
	}
}

func (s *KonzumSource) Slug() string { return "konzum" }

// Fetch walks the paginated index for date and downloads every per-store
// CSV it links to. Pagination ends at the first page that yields no new
// links.
func (s *KonzumSource) Fetch(ctx context.Context, date time.Time) ([]model.Store, error) {
	day := date.Format("2006-01-02")

	seen := make(map[string]bool)
	var files []konzumFile
	for page := 1; page <= konzumMaxPages; page++ {
		pageURL := fmt.Sprintf("%s?date=%s&page=%d", s.baseURL, day, page)
		pageFiles, err := s.indexPage(ctx, pageURL, seen)
		if err != nil {
			return nil, fmt.Errorf("konzum: index page %d: %w", page, err)
		}
		if len(pageFiles) == 0 {
			break
		}
		files = append(files, pageFiles...)
	}

	if len(files) == 0 {
		log.Warn().Str("chain", s.Slug()).Str("date", day).Msg("No price files published")
		return nil, nil
	}

	stores := make([]model.Store, 0, len(files))
	for _, f := range files {
		data, err := s.client.GetBytes(ctx, f.url)
		if err != nil {
			return nil, fmt.Errorf("konzum: download %s: %w", f.filename, err)
		}

		store := storeFromFilename(s.Slug(), f.filename)
		if store.StoreID == "" {
			log.Warn().Str("chain", s.Slug()).Str("filename", f.filename).Msg("Cannot determine store id, skipping file")
			continue
		}

		items, err := parseProducts(s.Slug(), data, croatianMapping)
		if err != nil {
			return nil, fmt.Errorf("konzum: parse %s: %w", f.filename, err)
		}
		store.Items = items
		stores = append(stores, store)
	}

	return stores, nil
}

type konzumFile struct {
	url      string
	filename string
}

func (s *KonzumSource) indexPage(ctx context.Context, pageURL string, seen map[string]bool) ([]konzumFile, error) {
	body, err := s.client.GetBytes(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var files []konzumFile
	for _, match := range konzumDownloadPattern.FindAllStringSubmatch(string(body), -1) {
		href, encoded := match[1], match[2]
		fileURL := s.resolveURL(href)
		if seen[fileURL] {
			continue
		}
		seen[fileURL] = true

		filename, err := url.QueryUnescape(encoded)
		if err != nil {
			filename = strings.ReplaceAll(encoded, "+", " ")
		}
		files = append(files, konzumFile{url: fileURL, filename: filename})
	}
	return files, nil
}

func (s *KonzumSource) resolveURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return u.ResolveReference(ref).String()
}
