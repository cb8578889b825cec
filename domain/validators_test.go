package domain

import "testing"

func TestValidateDocTypeUnknown(t *testing.T) {
	if err := ValidateDocType("BOGUS", 2020); err == nil {
		t.Fatal("expected error for unknown doc type")
	}
}

func TestValidateDocTypeYearFloor(t *testing.T) {
	if err := ValidateDocType("DFP", 2005); err == nil {
		t.Fatal("expected error for year preceding floor")
	}
	if err := ValidateDocType("DFP", 2015); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDocTypeFutureYear(t *testing.T) {
	if err := ValidateDocType("DFP", 3000); err == nil {
		t.Fatal("expected error for future year")
	}
}

func TestValidateAssetClassesEmpty(t *testing.T) {
	if _, err := ValidateAssetClasses(nil); err == nil {
		t.Fatal("expected error for empty asset class list")
	}
}

func TestValidateAssetClassesUnion(t *testing.T) {
	codes, err := ValidateAssetClasses([]string{"ações", "opções"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range []string{"010", "020", "070", "080"} {
		if !codes[c] {
			t.Errorf("expected code %s in union", c)
		}
	}
}

func TestValidateAssetClassesUnknown(t *testing.T) {
	if _, err := ValidateAssetClasses([]string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown asset class")
	}
}

func TestValidateYearRange(t *testing.T) {
	cases := []struct {
		first, last int
		wantErr     bool
	}{
		{1990, 2000, false},
		{2000, 1990, true},
		{1900, 2000, true},
		{1990, 3000, true},
	}
	for _, c := range cases {
		err := ValidateYearRange(c.first, c.last)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateYearRange(%d,%d): err=%v, wantErr=%v", c.first, c.last, err, c.wantErr)
		}
	}
}

func TestNewExtractionRequestValidatesBeforeConstructing(t *testing.T) {
	if _, err := NewExtractionRequest("src", "dst", nil, 1990, 2000, nil, "out", ModeFast); err == nil {
		t.Fatal("expected error for empty asset classes")
	}
	if _, err := NewExtractionRequest("src", "dst", []string{"ações"}, 2000, 1990, nil, "out", ModeFast); err == nil {
		t.Fatal("expected error for invalid year range")
	}
	req, err := NewExtractionRequest("src", "dst", []string{"ações"}, 1990, 2000, []string{"a.zip"}, "out", ModeFast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.TargetMarketCodes["010"] {
		t.Error("expected resolved market code 010 for ações")
	}
}
