package parquetio

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/brdata/pipeline/domain"
	"github.com/shopspring/decimal"
)

// decimalToArrow converts a shopspring decimal to an Arrow Decimal128 at
// the fixed scale used by every COTAHIST monetary field, so the
// round-trip law in spec.md §8 ("CSV/line -> record -> serialization ->
// deserialization preserves all fields exactly") holds bit-for-bit
// instead of approximately, which float64 storage cannot guarantee.
func decimalToArrow(d decimal.Decimal) (decimal128.Num, error) {
	scaled := d.Rescale(-priceScale)
	coeff := scaled.Coefficient()
	return decimal128.FromBigInt(coeff)
}

func date32(t time.Time) arrow.Date32 {
	return arrow.Date32FromTime(t)
}

// BuildCotahistBatch builds one Arrow record from a slice of decoded
// COTAHIST rows, using array.NewRecordBuilder the way
// DataDog-datadog-agent's metricBatchBuilder.build does.
func BuildCotahistBatch(rows []domain.CotahistRecord) (arrow.Record, error) {
	schema := CotahistSchema()
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	tradingDate := b.Field(0).(*array.Date32Builder)
	bdiCode := b.Field(1).(*array.StringBuilder)
	ticker := b.Field(2).(*array.StringBuilder)
	marketType := b.Field(3).(*array.StringBuilder)
	shortName := b.Field(4).(*array.StringBuilder)
	specification := b.Field(5).(*array.StringBuilder)
	opening := b.Field(6).(*array.Decimal128Builder)
	high := b.Field(7).(*array.Decimal128Builder)
	low := b.Field(8).(*array.Decimal128Builder)
	avg := b.Field(9).(*array.Decimal128Builder)
	closing := b.Field(10).(*array.Decimal128Builder)
	bestBid := b.Field(11).(*array.Decimal128Builder)
	bestAsk := b.Field(12).(*array.Decimal128Builder)
	tradeCount := b.Field(13).(*array.Int32Builder)
	totalQty := b.Field(14).(*array.Int64Builder)
	totalVolume := b.Field(15).(*array.Decimal128Builder)
	expiration := b.Field(16).(*array.Date32Builder)
	quoteFactor := b.Field(17).(*array.Int32Builder)
	isin := b.Field(18).(*array.StringBuilder)
	distNum := b.Field(19).(*array.Int16Builder)

	appendDecimal := func(fb *array.Decimal128Builder, d decimal.Decimal, field string) error {
		num, err := decimalToArrow(d)
		if err != nil {
			return fmt.Errorf("converting %s: %w", field, err)
		}
		fb.Append(num)
		return nil
	}

	for _, r := range rows {
		tradingDate.Append(date32(r.TradingDate))
		bdiCode.Append(r.BDICode)
		ticker.Append(r.Ticker)
		marketType.Append(r.MarketType)
		shortName.Append(r.ShortName)
		specification.Append(r.Specification)
		if err := appendDecimal(opening, r.OpeningPrice, "opening_price"); err != nil {
			return nil, err
		}
		if err := appendDecimal(high, r.HighPrice, "high_price"); err != nil {
			return nil, err
		}
		if err := appendDecimal(low, r.LowPrice, "low_price"); err != nil {
			return nil, err
		}
		if err := appendDecimal(avg, r.AvgPrice, "avg_price"); err != nil {
			return nil, err
		}
		if err := appendDecimal(closing, r.ClosingPrice, "closing_price"); err != nil {
			return nil, err
		}
		if err := appendDecimal(bestBid, r.BestBidPrice, "best_bid_price"); err != nil {
			return nil, err
		}
		if err := appendDecimal(bestAsk, r.BestAskPrice, "best_ask_price"); err != nil {
			return nil, err
		}
		tradeCount.Append(r.TradeCount)
		totalQty.Append(r.TotalQuantity)
		if err := appendDecimal(totalVolume, r.TotalVolume, "total_volume"); err != nil {
			return nil, err
		}
		if r.ExpirationDate != nil {
			expiration.Append(date32(*r.ExpirationDate))
		} else {
			expiration.AppendNull()
		}
		quoteFactor.Append(r.QuoteFactor)
		isin.Append(r.ISINCode)
		distNum.Append(r.DistributionNum)
	}

	return b.NewRecord(), nil
}

// BuildCSVBatch builds an Arrow record from raw CSV rows (string values
// already decoded from Latin-1), used by the atomic extractor.
func BuildCSVBatch(schema *arrow.Schema, rows [][]string) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	nCols := len(schema.Fields())
	builders := make([]*array.StringBuilder, nCols)
	for i := 0; i < nCols; i++ {
		builders[i] = b.Field(i).(*array.StringBuilder)
	}
	for _, row := range rows {
		for i := 0; i < nCols; i++ {
			if i < len(row) {
				builders[i].Append(row[i])
			} else {
				builders[i].AppendNull()
			}
		}
	}
	return b.NewRecord()
}
