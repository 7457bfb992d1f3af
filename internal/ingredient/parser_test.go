package ingredient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		quantity     *float64
		quantityMax  *float64
		unit         string
		unitOriginal string
		ingredient   string
	}{
		{"quantity unit name", "2 cups flour", f(2), nil, "cups", "cups", "flour"},
		{"range with unit", "1-2 cloves garlic, minced", f(1), f(2), "cloves", "cloves", "garlic, minced"},
		{"range with spaces", "2 - 3 tbsp butter", f(2), f(3), "tbsp", "tbsp", "butter"},
		{"decimal quantity", "1.5 kg potatoes", f(1.5), nil, "kg", "kg", "potatoes"},
		{"unit glued to number", "250g sugar", f(250), nil, "g", "g", "sugar"},
		{"unit keeps source casing", "3 TBSP Olive Oil", f(3), nil, "tbsp", "TBSP", "Olive Oil"},
		{"no unit", "2 large eggs", f(2), nil, "", "", "large eggs"},
		{"unit is not leading", "a pinch of salt", nil, nil, "", "", "a pinch of salt"},
		{"unit without quantity", "pinch of salt", nil, nil, "pinch", "pinch", "of salt"},
		{"unit needs word boundary", "2 large lemons", f(2), nil, "", "", "large lemons"},
		{"l is not lb", "1 lb beef", f(1), nil, "lb", "lb", "beef"},
		{"cup prefix of cupcake", "12 cupcake liners", f(12), nil, "", "", "cupcake liners"},
		{"only quantity and unit", "2 tbsp", f(2), nil, "tbsp", "tbsp", "2 tbsp"},
		{"only quantity", "3", f(3), nil, "", "", "3"},
		{"surrounding whitespace", "  1 can tomatoes  ", f(1), nil, "can", "can", "tomatoes"},
		{"plain text", "salt and pepper to taste", nil, nil, "", "", "salt and pepper to taste"},
		{"range with non-breaking spaces", "1\u00a0-\u00a02 cups flour", f(1), f(2), "cups", "cups", "flour"},
		{"range with narrow spaces", "2\u2009-\u20093 tbsp butter", f(2), f(3), "tbsp", "tbsp", "butter"},
		{"oversized range start", strings.Repeat("9", 400) + "-2 cups flour", nil, nil, "", "", strings.Repeat("9", 400) + "-2 cups flour"},
		{"oversized range end", "1-" + strings.Repeat("9", 400) + " cups", f(1), nil, "", "", "-" + strings.Repeat("9", 400) + " cups"},
		{"oversized quantity", strings.Repeat("9", 400) + " g sugar", nil, nil, "", "", strings.Repeat("9", 400) + " g sugar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.quantity, got.Quantity)
			assert.Equal(t, tt.quantityMax, got.QuantityMax)
			assert.Equal(t, tt.unit, got.Unit)
			assert.Equal(t, tt.unitOriginal, got.UnitOriginal)
			assert.Equal(t, tt.ingredient, got.Ingredient)

			require.NotNil(t, got.Optional)
			assert.False(t, *got.Optional)
			require.NotNil(t, got.Confidence)
			assert.Equal(t, DefaultConfidence, *got.Confidence)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		assert.Equal(t, Detail{Raw: "", Ingredient: ""}, Parse(input))
	}
}

func TestParse_RawIsTrimmedInput(t *testing.T) {
	inputs := []string{"2 cups flour", "  1-2 cloves garlic ", "salt", "1/2 tsp salt", "½ cup milk", "-", "   "}
	for _, input := range inputs {
		got := Parse(input)
		assert.Equal(t, strings.TrimSpace(input), got.Raw, "input %q", input)
		if got.Raw != "" {
			assert.NotEmpty(t, got.Ingredient, "input %q", input)
		}
	}
}

func TestParse_RangeImpliesQuantity(t *testing.T) {
	got := Parse("4-6 oz cheddar")
	require.NotNil(t, got.Quantity)
	require.NotNil(t, got.QuantityMax)
	assert.Equal(t, 4.0, *got.Quantity)
	assert.Equal(t, 6.0, *got.QuantityMax)
}

func TestParse_QuantityMaxNeverWithoutQuantity(t *testing.T) {
	huge := strings.Repeat("9", 400)
	inputs := []string{
		huge + "-2 cups flour",
		"2-" + huge + " cups flour",
		huge + "." + huge + " - 1 g salt",
		huge,
		"1\u00a0-\u00a02",
	}
	for _, input := range inputs {
		got := Parse(input)
		if got.QuantityMax != nil {
			assert.NotNil(t, got.Quantity, "input %q", input)
		}
		assert.Equal(t, got, Parse(got.Raw), "input %q", input)
	}
}

func TestParse_FractionIsNotUnderstood(t *testing.T) {
	got := Parse("1/2 tsp salt")
	require.NotNil(t, got.Quantity)
	assert.Equal(t, 1.0, *got.Quantity)
	assert.Empty(t, got.Unit)
	assert.Equal(t, "/2 tsp salt", got.Ingredient)
}
