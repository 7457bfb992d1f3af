package ingredient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{0, "0"},
		{1.5, "1 1/2"},
		{1.0 / 3.0, "1/3"},
		{0.25, "1/4"},
		{2.75, "2 3/4"},
		{0.125, "1/8"},
		{0.66, "2/3"},
		{1.99, "2"},
		{2.005, "2"},
		{0.03, "0.03"},
		{-1.5, "-1 1/2"},
		{-2, "-2"},
		{-0.001, "0"},
		{1000000, "1000000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatQuantity(tt.in), "FormatQuantity(%v)", tt.in)
	}
}

func TestFormatQuantity_NotFinite(t *testing.T) {
	assert.Equal(t, "", FormatQuantity(math.NaN()))
	assert.Equal(t, "", FormatQuantity(math.Inf(1)))
}

func TestToDisplayRow(t *testing.T) {
	tests := []struct {
		name string
		in   Detail
		want DisplayRow
	}{
		{
			name: "parsed line",
			in:   Parse("2 cups flour"),
			want: DisplayRow{Mode: ModeStructured, RawText: "2 cups flour", QuantityText: "2", UnitText: "cups", IngredientText: "flour"},
		},
		{
			name: "range",
			in:   Detail{Raw: "1.5-2 cups milk", Quantity: f(1.5), QuantityMax: f(2), Unit: "cups", Ingredient: "milk"},
			want: DisplayRow{Mode: ModeStructured, RawText: "1.5-2 cups milk", QuantityText: "1 1/2-2", UnitText: "cups", IngredientText: "milk"},
		},
		{
			name: "unit original wins",
			in:   Detail{Raw: "1 Tbsp oil", Quantity: f(1), Unit: "tbsp", UnitOriginal: " Tbsp ", Ingredient: "oil"},
			want: DisplayRow{Mode: ModeStructured, RawText: "1 Tbsp oil", QuantityText: "1", UnitText: "Tbsp", IngredientText: "oil"},
		},
		{
			name: "falls back to ingredient for raw text",
			in:   Detail{Raw: "  ", Ingredient: " basil ", Notes: " fresh "},
			want: DisplayRow{Mode: ModeStructured, RawText: "basil", IngredientText: "basil", NoteText: "fresh"},
		},
		{
			name: "max without quantity is ignored",
			in:   Detail{Raw: "some rice", QuantityMax: f(3)},
			want: DisplayRow{Mode: ModeLegacy, RawText: "some rice"},
		},
		{
			name: "nan quantity is ignored",
			in:   Detail{Raw: "x", Quantity: f(math.NaN())},
			want: DisplayRow{Mode: ModeLegacy, RawText: "x"},
		},
		{
			name: "notes alone stay legacy",
			in:   Detail{Raw: "water", Notes: "cold"},
			want: DisplayRow{Mode: ModeLegacy, RawText: "water", NoteText: "cold"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToDisplayRow(tt.in))
		})
	}
}

func TestDisplayRows_DropsEmptyRecords(t *testing.T) {
	rows := DisplayRows(Lists{Details: []Entry{DetailEntry(Detail{Raw: "", Ingredient: ""})}})
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestDisplayRows_LegacyList(t *testing.T) {
	rows := DisplayRows(Lists{Ingredients: []string{"2 eggs", "  ", "flour"}})
	assert.Equal(t, []DisplayRow{
		{Mode: ModeLegacy, RawText: "2 eggs"},
		{Mode: ModeLegacy, RawText: "flour"},
	}, rows)
}

func TestDisplayRows_StructuredTakesPrecedence(t *testing.T) {
	rows := DisplayRows(Lists{
		Ingredients: []string{"legacy line"},
		Details:     DetailEntries(MigrateStrings([]string{"2 cups flour", "1 egg"})),
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "2 cups flour", rows[0].RawText)
	assert.Equal(t, "1 egg", rows[1].RawText)
	assert.Equal(t, ModeStructured, rows[1].Mode)
}

func TestDisplayRows_FallsBackWhenDetailsYieldNothing(t *testing.T) {
	rows := DisplayRows(Lists{
		Ingredients: []string{"3 apples"},
		Details:     []Entry{LegacyEntry("ignored text"), DetailEntry(Detail{Raw: " "})},
	})
	assert.Equal(t, []DisplayRow{{Mode: ModeLegacy, RawText: "3 apples"}}, rows)
}

func TestDisplayRows_NoLists(t *testing.T) {
	assert.Empty(t, DisplayRows(Lists{}))
	assert.Empty(t, DisplayIngredients(Lists{}))
}

func TestDisplayIngredients(t *testing.T) {
	got := DisplayIngredients(Lists{Details: DetailEntries([]Detail{
		{Raw: " 1 lemon ", Ingredient: "lemon", Quantity: f(1)},
		{Raw: "", Ingredient: "thyme"},
	})})
	assert.Equal(t, []string{"1 lemon", "thyme"}, got)
}
