package chains

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kosarica/price-crawler/internal/model"
	"github.com/kosarica/price-crawler/internal/parsers/charset"
)

// columnMapping names the source CSV header for each canonical product
// field. Name and Price are required; empty entries mean the chain does
// not publish that field.
type columnMapping struct {
	ProductID       string
	Barcode         string
	Name            string
	Brand           string
	Category        string
	Unit            string
	Quantity        string
	Packaging       string
	Price           string
	UnitPrice       string
	SpecialPrice    string
	BestPrice30     string
	AnchorPrice     string
	AnchorPriceDate string
	InitialPrice    string
}

// croatianMapping covers the header names mandated by the Croatian price
// transparency regulation. Most chains follow it with minor spelling
// variations, which the diacritic-insensitive matching absorbs.
var croatianMapping = columnMapping{
	ProductID:       "šifra proizvoda",
	Barcode:         "barkod",
	Name:            "naziv proizvoda",
	Brand:           "marka proizvoda",
	Category:        "kategorija proizvoda",
	Unit:            "jedinica mjere",
	Quantity:        "neto količina",
	Price:           "maloprodajna cijena",
	UnitPrice:       "cijena za jedinicu mjere",
	SpecialPrice:    "mpc za vrijeme posebnog oblika prodaje",
	BestPrice30:     "najniža cijena u posljednjih 30 dana",
	AnchorPrice:     "sidrena cijena",
	AnchorPriceDate: "datum sidrene cijene",
	InitialPrice:    "početna cijena",
}

// foldHeader normalizes a header for matching: lowercase, Croatian
// diacritics folded to ASCII, whitespace collapsed.
func foldHeader(h string) string {
	folded := strings.Map(func(r rune) rune {
		switch r {
		case 'š', 'Š':
			return 's'
		case 'č', 'Č', 'ć', 'Ć':
			return 'c'
		case 'ž', 'Ž':
			return 'z'
		case 'đ', 'Đ':
			return 'd'
		default:
			return r
		}
	}, strings.ToLower(strings.TrimSpace(h)))
	return strings.Join(strings.Fields(folded), " ")
}

// detectDelimiter picks the delimiter whose per-line count is highest and
// most consistent across the first few non-empty lines.
func detectDelimiter(content string) rune {
	sample := make([]string, 0, 5)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sample = append(sample, trimmed)
			if len(sample) >= 5 {
				break
			}
		}
	}
	if len(sample) == 0 {
		return ','
	}

	best := ','
	bestScore := 0.0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		sum := 0
		counts := make([]int, len(sample))
		for i, line := range sample {
			counts[i] = strings.Count(line, string(delim))
			sum += counts[i]
		}
		avg := float64(sum) / float64(len(sample))
		if avg == 0 {
			continue
		}
		variance := 0.0
		for _, c := range counts {
			d := float64(c) - avg
			variance += d * d
		}
		variance /= float64(len(sample))
		if score := avg / (1.0 + variance); score > bestScore {
			bestScore = score
			best = delim
		}
	}
	return best
}

// parsePrice parses a price value as published by the chains: comma or dot
// decimal separator, optional currency suffix, optional thousands dots.
// Empty or unparseable values return nil.
func parsePrice(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSuffix(s, "EUR")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}

	// "1.234,56" style: dot thousands, comma decimal.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.ReplaceAll(s, " ", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return model.Round2Ptr(&d)
}

// headerIndex resolves the mapping against the actual header row. Returns
// field-name → column index; fields whose header is absent are omitted.
func headerIndex(headers []string, mapping columnMapping) (map[string]int, error) {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = foldHeader(h)
	}

	find := func(name string) int {
		want := foldHeader(name)
		for i, h := range folded {
			if h == want {
				return i
			}
		}
		// Prefix match tolerates trailing qualifiers like "(EUR)".
		for i, h := range folded {
			if strings.HasPrefix(h, want) {
				return i
			}
		}
		return -1
	}

	fields := map[string]string{
		"product_id":        mapping.ProductID,
		"barcode":           mapping.Barcode,
		"name":              mapping.Name,
		"brand":             mapping.Brand,
		"category":          mapping.Category,
		"unit":              mapping.Unit,
		"quantity":          mapping.Quantity,
		"packaging":         mapping.Packaging,
		"price":             mapping.Price,
		"unit_price":        mapping.UnitPrice,
		"special_price":     mapping.SpecialPrice,
		"best_price_30":     mapping.BestPrice30,
		"anchor_price":      mapping.AnchorPrice,
		"anchor_price_date": mapping.AnchorPriceDate,
		"initial_price":     mapping.InitialPrice,
	}

	indices := make(map[string]int)
	for field, header := range fields {
		if header == "" {
			continue
		}
		if idx := find(header); idx >= 0 {
			indices[field] = idx
		}
	}

	for _, required := range []string{"name", "price"} {
		if _, ok := indices[required]; !ok {
			return nil, fmt.Errorf("required column %q not found in headers %v", required, headers)
		}
	}
	return indices, nil
}

// parseProducts parses one chain price CSV into products. The raw bytes are
// decoded from whatever encoding the chain used, the delimiter is sniffed,
// and rows that fail validation are skipped with a warning.
func parseProducts(chain string, data []byte, mapping columnMapping) ([]model.Product, error) {
	content, err := charset.Decode(data, charset.DetectEncoding(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode price file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = detectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse price file: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	indices, err := headerIndex(rows[0], mapping)
	if err != nil {
		return nil, err
	}

	cell := func(row []string, field string) string {
		idx, ok := indices[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	products := make([]model.Product, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		p := model.Product{
			ProductID:       cell(row, "product_id"),
			Barcode:         cell(row, "barcode"),
			Name:            cell(row, "name"),
			Brand:           cell(row, "brand"),
			Category:        cell(row, "category"),
			Unit:            cell(row, "unit"),
			Quantity:        cell(row, "quantity"),
			Packaging:       cell(row, "packaging"),
			Price:           parsePrice(cell(row, "price")),
			UnitPrice:       parsePrice(cell(row, "unit_price")),
			SpecialPrice:    parsePrice(cell(row, "special_price")),
			BestPrice30:     parsePrice(cell(row, "best_price_30")),
			AnchorPrice:     parsePrice(cell(row, "anchor_price")),
			AnchorPriceDate: cell(row, "anchor_price_date"),
			InitialPrice:    parsePrice(cell(row, "initial_price")),
		}
		p.Normalize()

		if err := p.Validate(); err != nil {
			log.Warn().
				Str("chain", chain).
				Int("row", n+2).
				Err(err).
				Msg("Skipping invalid product row")
			continue
		}
		products = append(products, p)
	}

	return products, nil
}
