package domain

import "time"

// Static tables for CVM document types and B3 asset classes (spec.md
// §4.8). Excluded from core configuration per spec.md §1 ("the catalog of
// valid document codes and asset-class mappings" is a collaborator
// concern) but the tables themselves are data the validators need, so
// they ship as Go literals — the same way the teacher ships its default
// CIDR allowlists as literals rather than runtime config.

// CVMDocYearFloor maps a CVM document type to the first year it is
// available for, per spec.md §4.8.
var CVMDocYearFloor = map[string]int{
	"DFP":  2010,
	"ITR":  2011,
	"FRE":  2010,
	"FCA":  2010,
	"CGVN": 2018,
	"VLMO": 2018,
	"IPE":  2010,
}

const b3YearFloor = 1986

// AssetClassMarketCodes maps a B3 asset class to its 3-digit market-type
// codes (spec.md §4.8).
var AssetClassMarketCodes = map[string][]string{
	"ações":              {"010", "020"},
	"etf":                {"010", "020"},
	"opções":             {"070", "080"},
	"termo":              {"030"},
	"exercicio_opcoes":   {"012", "013"},
	"forward":            {"050", "060"},
	"leilao":             {"017"},
}

// ValidateDocType checks a CVM document type and a requested year against
// CVMDocYearFloor.
func ValidateDocType(docType string, year int) error {
	floor, ok := CVMDocYearFloor[docType]
	if !ok {
		return &ValidationError{Field: "doc_type", Reason: "unknown CVM document type: " + docType}
	}
	if year < floor {
		return &ValidationError{Field: "year", Reason: "year precedes earliest available year for " + docType}
	}
	if year > time.Now().Year() {
		return &ValidationError{Field: "year", Reason: "year is in the future"}
	}
	return nil
}

// ValidateAssetClasses checks a set of asset classes and resolves them to
// the union of their market codes.
func ValidateAssetClasses(assetClasses []string) (map[string]bool, error) {
	if len(assetClasses) == 0 {
		return nil, &ValidationError{Field: "asset_classes", Reason: "empty asset class list"}
	}
	codes := make(map[string]bool)
	for _, class := range assetClasses {
		mapped, ok := AssetClassMarketCodes[class]
		if !ok {
			return nil, &ValidationError{Field: "asset_classes", Reason: "unknown asset class: " + class}
		}
		for _, c := range mapped {
			codes[c] = true
		}
	}
	return codes, nil
}

// ValidateYearRange checks a B3 COTAHIST year range.
func ValidateYearRange(first, last int) error {
	if first > last {
		return &ValidationError{Field: "year_range", Reason: "first_year must not exceed last_year"}
	}
	if first < b3YearFloor {
		return &ValidationError{Field: "year_range", Reason: "year precedes earliest available B3 year"}
	}
	currentYear := time.Now().Year()
	if last > currentYear {
		return &ValidationError{Field: "year_range", Reason: "year is in the future"}
	}
	return nil
}

// NewExtractionRequest validates its inputs and resolves target market
// codes before any I/O, per spec.md §4.8 ("these validators run before
// any side-effecting work").
func NewExtractionRequest(sourceDir, destDir string, assetClasses []string, yearFirst, yearLast int, zipFiles []string, outputFilename string, mode ProcessingMode) (*ExtractionRequest, error) {
	if err := ValidateYearRange(yearFirst, yearLast); err != nil {
		return nil, err
	}
	codes, err := ValidateAssetClasses(assetClasses)
	if err != nil {
		return nil, err
	}
	return &ExtractionRequest{
		SourceDirectory:      sourceDir,
		DestinationDirectory: destDir,
		AssetClasses:         assetClasses,
		YearFirst:            yearFirst,
		YearLast:             yearLast,
		TargetMarketCodes:    codes,
		DiscoveredZipFiles:   zipFiles,
		OutputFilename:       outputFilename,
		Mode:                 mode,
	}, nil
}
