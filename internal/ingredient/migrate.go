package ingredient

import "strings"

// Prefixes left behind on Ingredient by an old split that cut quantities
// like "1/2" and "salt and pepper" in the wrong place.
var damagedPrefixes = []string{"/", "and "}

// MigrateItem upgrades a single stored entry to a Detail. Legacy text is
// parsed. Records are kept as they are unless they look damaged or carry no
// structure at all, in which case the quantity, unit and name are re-derived
// from Raw.
func MigrateItem(e Entry) Detail {
	if e.Kind != EntryDetail {
		return Parse(e.Text)
	}

	d := e.Detail
	if !needsRepair(d) {
		return d
	}

	parsed := Parse(d.Raw)
	d.Ingredient = parsed.Ingredient
	d.Quantity = parsed.Quantity
	d.QuantityMax = parsed.QuantityMax
	d.Unit = parsed.Unit
	d.UnitOriginal = parsed.UnitOriginal
	return d
}

// MigrateEntries upgrades every entry of a stored list. Running it on its
// own output returns the same list.
func MigrateEntries(entries []Entry) []Detail {
	out := make([]Detail, 0, len(entries))
	for _, e := range entries {
		out = append(out, MigrateItem(e))
	}
	return out
}

// MigrateStrings parses plain text lines, as submitted by an edit form.
func MigrateStrings(lines []string) []Detail {
	out := make([]Detail, 0, len(lines))
	for _, line := range lines {
		out = append(out, Parse(line))
	}
	return out
}

func needsRepair(d Detail) bool {
	name := strings.ToLower(strings.TrimSpace(d.Ingredient))
	for _, prefix := range damagedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return !hasStructure(d) && strings.TrimSpace(d.Raw) != ""
}

func hasStructure(d Detail) bool {
	return d.Quantity != nil ||
		d.QuantityMax != nil ||
		strings.TrimSpace(d.Unit) != "" ||
		strings.TrimSpace(d.UnitOriginal) != ""
}
