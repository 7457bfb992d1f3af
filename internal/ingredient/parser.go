// Package ingredient turns free text ingredient lines into structured
// records, upgrades stored ingredient lists to that structure and projects
// either form into display rows.
package ingredient

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultConfidence is attached to every parsed line.
const DefaultConfidence = 0.5

// Units is the closed vocabulary recognised at the start of a line.
// Changing it changes how stored text re-parses during migration.
var Units = []string{
	"tsp", "tbsp", "ml", "l", "g", "kg", "oz", "lb",
	"cup", "cups", "pinch", "clove", "cloves", "can", "cans",
}

var (
	rangePattern  = regexp.MustCompile(`^(\d+(?:\.\d+)?)[\s\p{Zs}]*-[\s\p{Zs}]*(\d+(?:\.\d+)?)`)
	numberPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)
	unitPattern   = regexp.MustCompile(`(?i)^(` + strings.Join(Units, "|") + `)\b`)
)

// Parse converts one ingredient line into a Detail. It only understands the
// leading "QUANTITY UNIT NAME" shape; anything else ends up in Ingredient.
func Parse(text string) Detail {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Detail{Raw: "", Ingredient: ""}
	}

	d := Detail{Raw: raw}
	rest := raw

	// A number too large for a float64 is not a quantity and stays in the text.
	if lo, hi, n := matchRange(rest); n > 0 {
		d.Quantity, d.QuantityMax = lo, hi
		rest = rest[n:]
	} else if m := numberPattern.FindStringSubmatch(rest); m != nil {
		if q := parseNumber(m[1]); q != nil {
			d.Quantity = q
			rest = rest[len(m[0]):]
		}
	}

	rest = strings.TrimSpace(rest)
	if m := unitPattern.FindStringSubmatch(rest); m != nil {
		d.UnitOriginal = m[1]
		d.Unit = strings.ToLower(m[1])
		rest = rest[len(m[0]):]
	}

	d.Ingredient = strings.TrimSpace(rest)
	if d.Ingredient == "" {
		d.Ingredient = raw
	}

	optional := false
	confidence := DefaultConfidence
	d.Optional = &optional
	d.Confidence = &confidence
	return d
}

func matchRange(s string) (lo, hi *float64, n int) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return nil, nil, 0
	}
	lo, hi = parseNumber(m[1]), parseNumber(m[2])
	if lo == nil || hi == nil {
		return nil, nil, 0
	}
	return lo, hi, len(m[0])
}

func parseNumber(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
