package ingredient

import (
	"math"
	"strconv"
	"strings"
)

// maxFractionError is how far a fraction may be from the real value before
// FormatQuantity falls back to decimals.
const maxFractionError = 0.02

// DisplayRows projects a recipe's ingredients into rows. Structured records
// win over the legacy text list whenever they yield at least one row.
func DisplayRows(l Lists) []DisplayRow {
	if l.Details != nil {
		rows := make([]DisplayRow, 0, len(l.Details))
		for _, e := range l.Details {
			if e.Kind != EntryDetail {
				continue
			}
			row := ToDisplayRow(e.Detail)
			if row.RawText == "" {
				continue
			}
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			return rows
		}
	}

	rows := make([]DisplayRow, 0, len(l.Ingredients))
	for _, line := range l.Ingredients {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		rows = append(rows, DisplayRow{Mode: ModeLegacy, RawText: text})
	}
	return rows
}

// DisplayIngredients returns only the full text of every display row.
func DisplayIngredients(l Lists) []string {
	rows := DisplayRows(l)
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.RawText)
	}
	return out
}

// ToDisplayRow renders a single record.
func ToDisplayRow(d Detail) DisplayRow {
	row := DisplayRow{
		RawText:        firstNonBlank(d.Raw, d.Ingredient),
		QuantityText:   quantityText(d.Quantity, d.QuantityMax),
		UnitText:       firstNonBlank(d.UnitOriginal, d.Unit),
		IngredientText: strings.TrimSpace(d.Ingredient),
		NoteText:       strings.TrimSpace(d.Notes),
	}

	row.Mode = ModeLegacy
	if row.QuantityText != "" || row.UnitText != "" || row.IngredientText != "" {
		row.Mode = ModeStructured
	}
	return row
}

func quantityText(q, max *float64) string {
	if !finite(q) {
		return ""
	}
	text := FormatQuantity(*q)
	if finite(max) {
		text += "-" + FormatQuantity(*max)
	}
	return text
}

// FormatQuantity renders an amount the way a cook reads it: whole numbers
// stay plain, common fractions become "1 1/2", anything else is a short
// decimal.
func FormatQuantity(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	text := formatAbs(math.Abs(v))
	// Negatives that round to zero render as "0", never "-0".
	if v < 0 && text != "0" {
		return "-" + text
	}
	return text
}

func formatAbs(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}

	whole := math.Floor(v)
	rem := v - whole

	bestNum, bestDen := 0, 1
	bestErr := math.Inf(1)
	for den := 2; den <= 16; den++ {
		num := int(math.Round(rem * float64(den)))
		err := math.Abs(rem - float64(num)/float64(den))
		if err < bestErr {
			bestNum, bestDen, bestErr = num, den, err
		}
	}

	if bestErr > maxFractionError {
		s := strconv.FormatFloat(v, 'f', 3, 64)
		s = strings.TrimRight(s, "0")
		return strings.TrimSuffix(s, ".")
	}

	if bestNum == 0 {
		return strconv.FormatFloat(whole, 'f', 0, 64)
	}
	if bestNum == bestDen {
		return strconv.FormatFloat(whole+1, 'f', 0, 64)
	}

	fraction := strconv.Itoa(bestNum) + "/" + strconv.Itoa(bestDen)
	if whole == 0 {
		return fraction
	}
	return strconv.FormatFloat(whole, 'f', 0, 64) + " " + fraction
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
