package chains

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/price-crawler/internal/httpx"
	"github.com/kosarica/price-crawler/internal/model"
)

const (
	// DM publishes a single national price list as XLSX on their content
	// server; prices are uniform across all stores.
	dmPriceListURL = "https://content.services.dmtech.com/rootpage-dm-shop-hr-hr/resource/blob/3245770/0a2d2d47073cad06c1f3a8d4fbba2e50/vlada-oznacavanje-cijena-cijenik-236-data.xlsx"

	dmStoreID = "dm_national"

	// The sheet opens with a title row, an empty row and the header row;
	// data starts on the fourth row.
	dmHeaderRows = 3
)

// Fixed column layout of the DM web XLSX. Column 8 is an online-only flag
// and is ignored.
const (
	dmColName = iota
	dmColProductID
	dmColBrand
	dmColBarcode
	dmColCategory
	dmColQuantity
	dmColUnit
	dmColUnitPrice
	_
	dmColPrice
	dmColSpecialPrice
	dmColBestPrice30
	dmColAnchorPrice
)

// DmSource crawls the DM national price list.
type DmSource struct {
	client *httpx.Client
	url    string
}

// NewDmSource creates the DM source with default pacing.
func NewDmSource() *DmSource {
	return &DmSource{
		client: httpx.NewClientDefault(),
		url:    dmPriceListURL,
	}
}

func (s *DmSource) Slug() string { return "dm" }

// Fetch downloads the national XLSX and returns it as a single synthetic
// national store. DM does not publish dated lists, so date only matters for
// logging; the current list is what the portal serves.
func (s *DmSource) Fetch(ctx context.Context, date time.Time) ([]model.Store, error) {
	data, err := s.client.GetBytes(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("dm: download price list: %w", err)
	}

	items, err := s.parseWorkbook(data)
	if err != nil {
		return nil, fmt.Errorf("dm: parse price list: %w", err)
	}
	if len(items) == 0 {
		log.Warn().Str("chain", s.Slug()).Str("date", date.Format("2006-01-02")).Msg("Price list is empty")
		return nil, nil
	}

	store := model.Store{
		Chain:     s.Slug(),
		StoreID:   dmStoreID,
		Name:      "DM National",
		StoreType: "national",
		Items:     items,
	}
	return []model.Store{store}, nil
}

func (s *DmSource) parseWorkbook(data []byte) ([]model.Product, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) <= dmHeaderRows {
		return nil, nil
	}

	cell := func(row []string, idx int) string {
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	products := make([]model.Product, 0, len(rows)-dmHeaderRows)
	for n, row := range rows[dmHeaderRows:] {
		if len(row) == 0 {
			continue
		}

		p := model.Product{
			ProductID:    cell(row, dmColProductID),
			Name:         cell(row, dmColName),
			Brand:        cell(row, dmColBrand),
			Barcode:      cell(row, dmColBarcode),
			Category:     cell(row, dmColCategory),
			Quantity:     cell(row, dmColQuantity),
			Unit:         cell(row, dmColUnit),
			UnitPrice:    parsePrice(cell(row, dmColUnitPrice)),
			Price:        parsePrice(cell(row, dmColPrice)),
			SpecialPrice: parsePrice(cell(row, dmColSpecialPrice)),
			BestPrice30:  parsePrice(cell(row, dmColBestPrice30)),
			AnchorPrice:  parsePrice(cell(row, dmColAnchorPrice)),
		}
		p.Normalize()

		if err := p.Validate(); err != nil {
			log.Warn().
				Str("chain", s.Slug()).
				Int("row", n+dmHeaderRows+1).
				Err(err).
				Msg("Skipping invalid product row")
			continue
		}
		products = append(products, p)
	}
	return products, nil
}
