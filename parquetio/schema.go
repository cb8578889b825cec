package parquetio

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// priceScale is the implied-decimal scale (V99) for every COTAHIST price
// and volume field (spec.md §3).
const priceScale = 2

func decimalType() *arrow.Decimal128Type {
	return &arrow.Decimal128Type{Precision: 18, Scale: priceScale}
}

// CotahistSchema returns the Arrow schema matching domain.CotahistRecord
// field-for-field (spec.md §3, §4.7 "Schema ... match CotahistRecord
// exactly"). Decimal fields use Arrow's Decimal128 type rather than
// float64 so round-tripping never loses precision (spec.md §8 invariant
// 6), and rather than plain strings so downstream Parquet readers get a
// native numeric column.
func CotahistSchema() *arrow.Schema {
	dt := decimalType()
	return arrow.NewSchema([]arrow.Field{
		{Name: "trading_date", Type: arrow.FixedWidthTypes.Date32},
		{Name: "bdi_code", Type: arrow.BinaryTypes.String},
		{Name: "ticker", Type: arrow.BinaryTypes.String},
		{Name: "market_type", Type: arrow.BinaryTypes.String},
		{Name: "short_name", Type: arrow.BinaryTypes.String},
		{Name: "specification", Type: arrow.BinaryTypes.String},
		{Name: "opening_price", Type: dt},
		{Name: "high_price", Type: dt},
		{Name: "low_price", Type: dt},
		{Name: "avg_price", Type: dt},
		{Name: "closing_price", Type: dt},
		{Name: "best_bid_price", Type: dt},
		{Name: "best_ask_price", Type: dt},
		{Name: "trade_count", Type: arrow.PrimitiveTypes.Int32},
		{Name: "total_quantity", Type: arrow.PrimitiveTypes.Int64},
		{Name: "total_volume", Type: dt},
		{Name: "expiration_date", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
		{Name: "quote_factor", Type: arrow.PrimitiveTypes.Int32},
		{Name: "isin_code", Type: arrow.BinaryTypes.String},
		{Name: "distribution_number", Type: arrow.PrimitiveTypes.Int16},
	}, nil)
}

// CSVSchema builds a schema for a CVM CSV entry from its header row
// (spec.md §9 open question: "the CVM inner-CSV schema is inferred from
// the file headers at read time ... implementations should preserve
// source column order"). Every column is typed as string: CVM CSVs mix
// dates, enums, and free text across seven document types with no single
// fixed layout, and the spec does not require numeric typing for this
// side of the pipeline — it only requires faithful column preservation.
func CSVSchema(header []string) *arrow.Schema {
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
