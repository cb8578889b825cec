// Package cotahist implements the COTAHIST Streaming Parser (spec.md
// §4.5): fixed-width 245-byte line decoding into domain.CotahistRecord,
// implied-decimal precision decoding, market-code filtering, and
// resource-adaptive batch dispatch.
//
// Grounded on the teacher's logparser/parser.go: bounded-slice field
// extraction generalizes logparser's manual byte-offset Apache log
// parsing (parseEvent's strings.IndexByte scanning) to fixed positional
// offsets; the Parser struct's workers/pool/adaptive-streaming-vs-batch
// split generalizes logparser.Parser's ParseFile (parseFileWithStreamingIO
// vs parseFileWithConcurrentIO) to this spec's FAST/SLOW modes.
package cotahist

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// maxLineLength guards against memory bombs (spec.md §4.5: "a line
// longer than 1,000 characters is rejected").
const maxLineLength = 1000

// SkipReason explains why parse_line produced no record.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipHeaderTrailer  SkipReason = "header_or_trailer"
	SkipMalformedTag   SkipReason = "malformed_tipreg"
	SkipTooLong        SkipReason = "line_too_long"
	SkipFilteredOut    SkipReason = "market_type_not_requested"
	SkipDecodeError    SkipReason = "decode_error"
)

// field extracts the 1-indexed, inclusive-start/inclusive-end byte range
// [start, end] from line using a bounded slice: out-of-range requests
// yield "" rather than panicking or erroring (spec.md §4.5).
func field(line string, start, end int) string {
	lo := start - 1
	hi := end
	if lo < 0 {
		lo = 0
	}
	if lo >= len(line) {
		return ""
	}
	if hi > len(line) {
		hi = len(line)
	}
	if hi <= lo {
		return ""
	}
	return line[lo:hi]
}

func trimmed(line string, start, end int) string {
	return trimSpace(field(line, start, end))
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && s[i] == ' ' {
		i++
	}
	for j > i && s[j-1] == ' ' {
		j--
	}
	return s[i:j]
}

// decodeImpliedDecimal parses a raw fixed-width integer string into an
// exact decimal with the given scale (spec.md §4.5: "decoded ... using
// arbitrary-precision arithmetic (never IEEE floats)"; spec.md §8
// invariant 6). Empty input decodes to zero.
func decodeImpliedDecimal(raw string, scale int32) (decimal.Decimal, error) {
	raw = trimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	intVal, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// raw is rejected by ParseInt, e.g. more than 18 digits (beyond
		// int64 range); fall back to exact big.Int parsing via
		// decimal.NewFromString with the scale applied afterward.
		d, derr := decimal.NewFromString(raw)
		if derr != nil {
			return decimal.Decimal{}, derr
		}
		return d.Shift(-scale), nil
	}
	return decimal.New(intVal, -scale), nil
}

func decodeRequiredDate(raw string) (time.Time, bool) {
	raw = trimSpace(raw)
	if raw == "" || raw == "00000000" {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func decodeOptionalDate(raw string) *time.Time {
	t, ok := decodeRequiredDate(raw)
	if !ok {
		return nil
	}
	return &t
}

func decodeInt32(raw string) int32 {
	raw = trimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

func decodeInt64(raw string) int64 {
	raw = trimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func decodeInt16(raw string) int16 {
	raw = trimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 16)
	if err != nil {
		return 0
	}
	return int16(v)
}
