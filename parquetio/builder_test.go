package parquetio

import (
	"testing"
	"time"

	"github.com/brdata/pipeline/domain"
	"github.com/shopspring/decimal"
)

func TestCotahistSchemaFieldCount(t *testing.T) {
	schema := CotahistSchema()
	if got := len(schema.Fields()); got != 20 {
		t.Fatalf("schema has %d fields, want 20 (one per domain.CotahistRecord field)", got)
	}
}

func TestCSVSchemaPreservesColumnOrder(t *testing.T) {
	header := []string{"CNPJ_CIA", "DT_REFER", "VERSAO"}
	schema := CSVSchema(header)
	if len(schema.Fields()) != len(header) {
		t.Fatalf("got %d fields, want %d", len(schema.Fields()), len(header))
	}
	for i, name := range header {
		if schema.Field(i).Name != name {
			t.Errorf("field %d = %q, want %q", i, schema.Field(i).Name, name)
		}
	}
}

func TestDecimalToArrowRoundTrip(t *testing.T) {
	d := decimal.New(10050, -2) // 100.50
	num, err := decimalToArrow(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num.ToString(priceScale) != "100.50" {
		t.Errorf("got %s, want 100.50", num.ToString(priceScale))
	}
}

func TestBuildCotahistBatch(t *testing.T) {
	rows := []domain.CotahistRecord{
		{
			TradingDate:   time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			BDICode:       "02",
			Ticker:        "PETR4",
			MarketType:    "010",
			ShortName:     "PETROBRAS",
			Specification: "ON",
			OpeningPrice:  decimal.New(2550, -2),
			HighPrice:     decimal.New(2600, -2),
			LowPrice:      decimal.New(2500, -2),
			AvgPrice:      decimal.New(2560, -2),
			ClosingPrice:  decimal.New(2590, -2),
			BestBidPrice:  decimal.New(2580, -2),
			BestAskPrice:  decimal.New(2600, -2),
			TradeCount:    100,
			TotalQuantity: 50_000,
			TotalVolume:   decimal.New(128_000_00, -2),
			QuoteFactor:   1,
			ISINCode:      "BRPETRACNOR9",
			DistributionNum: 126,
		},
	}
	rec, err := BuildCotahistBatch(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", rec.NumRows())
	}
	if rec.NumCols() != 20 {
		t.Fatalf("NumCols() = %d, want 20", rec.NumCols())
	}
}

func TestBuildCotahistBatchNullExpiration(t *testing.T) {
	rows := []domain.CotahistRecord{{TradingDate: time.Now(), ExpirationDate: nil}}
	rec, err := BuildCotahistBatch(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Release()

	col := rec.Column(16) // expiration_date
	if col.IsValid(0) {
		t.Error("expiration_date should be null when ExpirationDate is nil")
	}
}

func TestBuildCSVBatchPadsShortRows(t *testing.T) {
	schema := CSVSchema([]string{"a", "b", "c"})
	rows := [][]string{{"1", "2"}} // missing trailing column
	rec := BuildCSVBatch(schema, rows)
	defer rec.Release()

	if rec.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", rec.NumRows())
	}
	if rec.Column(2).IsValid(0) {
		t.Error("missing trailing column should be null")
	}
}
