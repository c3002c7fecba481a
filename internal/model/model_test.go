package model

import "testing"

func TestParseYearMonth(t *testing.T) {
	cases := []struct {
		in    string
		year  int
		month int
		ok    bool
	}{
		{"2015-01", 2015, 1, true},
		{"202510", 2025, 10, true},
		{" 2020-12 ", 2020, 12, true},
		{"2020-13", 0, 0, false},
		{"2020", 0, 0, false},
		{"20-01", 0, 0, false},
	}
	for _, tc := range cases {
		year, month, ok := ParseYearMonth(tc.in)
		if ok != tc.ok || year != tc.year || month != tc.month {
			t.Errorf("ParseYearMonth(%q) = %d, %d, %v; want %d, %d, %v", tc.in, year, month, ok, tc.year, tc.month, tc.ok)
		}
	}
}

func TestSalesRecordPeriod(t *testing.T) {
	r := SalesRecord{Year: 2015, Month: 3}
	if got := r.Period(); got != "2015-03" {
		t.Fatalf("Period() = %s, want 2015-03", got)
	}
}

func TestTierValid(t *testing.T) {
	for _, tier := range []Tier{TierFirst, TierNewFirst, TierSecond, TierThird} {
		if !tier.Valid() {
			t.Errorf("%s should be valid", tier)
		}
	}
	if Tier("fourth-tier").Valid() {
		t.Error("fourth-tier should not be valid")
	}
}
