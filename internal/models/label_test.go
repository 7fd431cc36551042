package models

import "testing"

func TestParseColumnLabel(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ColumnLabel
	}{
		{
			name: "well formed tuple",
			raw:  "('Sugarcane', 'Kharif', 'Yield (Tonne/Hectare)')",
			want: ColumnLabel{Crop: "Sugarcane", Season: "Kharif", Metric: "Yield (Tonne/Hectare)"},
		},
		{
			name: "double quoted segment with apostrophe",
			raw:  `('Dry chillies', "Rabi's", 'Area (Hectare)')`,
			want: ColumnLabel{Crop: "Dry chillies", Season: "Rabi's", Metric: "Area (Hectare)"},
		},
		{
			name: "extra segments keep first two and last",
			raw:  "('Onion', 'Rabi', 'Total', 'Production (Tonne)')",
			want: ColumnLabel{Crop: "Onion", Season: "Rabi", Metric: "Production (Tonne)"},
		},
		{
			name: "single segment",
			raw:  "('Garlic')",
			want: ColumnLabel{Crop: "Garlic", Season: UnknownField, Metric: "Garlic"},
		},
		{
			name: "no quotes at all",
			raw:  "Sugarcane Kharif Yield",
			want: ColumnLabel{Crop: UnknownField, Season: UnknownField, Metric: UnknownField},
		},
		{
			name: "empty label",
			raw:  "",
			want: ColumnLabel{Crop: UnknownField, Season: UnknownField, Metric: UnknownField},
		},
		{
			name: "unterminated trailing segment",
			raw:  "('Potato', 'Rabi', 'Yield",
			want: ColumnLabel{Crop: "Potato", Season: "Rabi", Metric: "Rabi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseColumnLabel(tt.raw)
			if got != tt.want {
				t.Errorf("ParseColumnLabel(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestColumnLabel_IsFallback(t *testing.T) {
	if (ColumnLabel{Crop: "A", Season: "B", Metric: "C"}).IsFallback() {
		t.Error("fully resolved label should not be a fallback")
	}
	if !(ColumnLabel{Crop: "A", Season: UnknownField, Metric: "C"}).IsFallback() {
		t.Error("label with Unknown season should be a fallback")
	}
}

func TestFormatTupleLabel_RoundTrip(t *testing.T) {
	parts := []string{"Turmeric", "Whole Year", "Yield (Tonne/Hectare)"}
	raw := FormatTupleLabel(parts)
	if raw != "('Turmeric', 'Whole Year', 'Yield (Tonne/Hectare)')" {
		t.Errorf("FormatTupleLabel() = %q", raw)
	}
	got := ParseColumnLabel(raw)
	if got.Crop != parts[0] || got.Season != parts[1] || got.Metric != parts[2] {
		t.Errorf("ParseColumnLabel(FormatTupleLabel()) = %+v", got)
	}

	withApostrophe := FormatTupleLabel([]string{"Farmer's crop", "Kharif", "Area"})
	if got := ParseColumnLabel(withApostrophe); got.Crop != "Farmer's crop" {
		t.Errorf("apostrophe part parsed as %q", got.Crop)
	}
}
