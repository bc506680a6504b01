package product

import (
	"testing"
)

func TestParsePriceBand(t *testing.T) {
	tests := []struct {
		band    string
		min     string
		max     string
		wantErr bool
	}{
		{band: "0-100", min: "0", max: "100"},
		{band: "100-500", min: "100", max: "500"},
		{band: "500-1000", min: "500", max: "1000"},
		{band: "1000+", min: "1000", max: ""},
		{band: "banana", wantErr: true},
		{band: "", wantErr: true},
	}

	for _, tt := range tests {
		min, max, err := ParsePriceBand(tt.band)
		if tt.wantErr {
			if err == nil {
				t.Errorf("band %q: expected an error", tt.band)
			}
			continue
		}
		if err != nil {
			t.Errorf("band %q: unexpected error %v", tt.band, err)
			continue
		}

		if min == nil || min.String() != tt.min {
			t.Errorf("band %q: min = %v, want %s", tt.band, min, tt.min)
		}

		if tt.max == "" {
			if max != nil {
				t.Errorf("band %q: expected open upper bound, got %v", tt.band, max)
			}
		} else if max == nil || max.String() != tt.max {
			t.Errorf("band %q: max = %v, want %s", tt.band, max, tt.max)
		}
	}
}
