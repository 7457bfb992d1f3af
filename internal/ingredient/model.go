package ingredient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Detail is the structured form of a single ingredient line.
type Detail struct {
	Raw          string   `json:"raw" yaml:"raw"`
	Ingredient   string   `json:"ingredient,omitempty" yaml:"ingredient,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	QuantityMax  *float64 `json:"quantityMax,omitempty" yaml:"quantityMax,omitempty"`
	Unit         string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	UnitOriginal string   `json:"unitOriginal,omitempty" yaml:"unitOriginal,omitempty"`
	Preparation  string   `json:"preparation,omitempty" yaml:"preparation,omitempty"`
	Notes        string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Optional     *bool    `json:"optional,omitempty" yaml:"optional,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// EntryKind tells a stored ingredient entry apart.
type EntryKind int

const (
	// EntryLegacy is a plain text line that predates structured parsing.
	EntryLegacy EntryKind = iota
	// EntryDetail is a structured record.
	EntryDetail
)

// Entry is one element of a stored ingredient list. Stored lists are
// heterogeneous: older recipes hold plain strings, newer ones hold records.
type Entry struct {
	Kind   EntryKind
	Text   string
	Detail Detail
}

// LegacyEntry wraps a free text line.
func LegacyEntry(text string) Entry {
	return Entry{Kind: EntryLegacy, Text: text}
}

// DetailEntry wraps a structured record.
func DetailEntry(d Detail) Entry {
	return Entry{Kind: EntryDetail, Detail: d}
}

// DetailEntries wraps every record of ds.
func DetailEntries(ds []Detail) []Entry {
	out := make([]Entry, 0, len(ds))
	for _, d := range ds {
		out = append(out, DetailEntry(d))
	}
	return out
}

// MarshalJSON implements the json.Marshaler interface for Entry.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Kind == EntryDetail {
		return json.Marshal(e.Detail)
	}
	return json.Marshal(e.Text)
}

// MarshalYAML implements the yaml.Marshaler interface for Entry.
func (e Entry) MarshalYAML() (interface{}, error) {
	if e.Kind == EntryDetail {
		return e.Detail, nil
	}
	return e.Text, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface for Entry.
// It never fails on well-formed JSON: values that are neither strings nor
// ingredient records become legacy text.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return fmt.Errorf("invalid ingredient entry: %s", data)
	}

	if data[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("failed to decode ingredient entry: %w", err)
		}
		raw, hasRaw := stringField(fields, "raw")
		ingredient, hasIngredient := stringField(fields, "ingredient")
		if hasRaw || hasIngredient {
			if !hasRaw {
				raw = ingredient
			}
			*e = DetailEntry(Detail{
				Raw:          raw,
				Ingredient:   ingredient,
				Quantity:     numberField(fields, "quantity"),
				QuantityMax:  numberField(fields, "quantityMax"),
				Unit:         firstString(fields, "unit"),
				UnitOriginal: firstString(fields, "unitOriginal"),
				Preparation:  firstString(fields, "preparation"),
				Notes:        firstString(fields, "notes"),
				Optional:     boolField(fields, "optional"),
				Confidence:   numberField(fields, "confidence"),
			})
			return nil
		}
	}

	*e = LegacyEntry(TextOf(data))
	return nil
}

// TextOf renders an arbitrary JSON value as a text line. Strings are
// returned unquoted, null becomes empty and anything else keeps its compact
// JSON form.
func TextOf(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s
		}
	case 'n':
		if string(data) == "null" {
			return ""
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func firstString(fields map[string]json.RawMessage, key string) string {
	s, _ := stringField(fields, key)
	return s
}

func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || raw[0] == 'n' {
		return nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}

func boolField(fields map[string]json.RawMessage, key string) *bool {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var b bool
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		b = true
	case "false":
	default:
		return nil
	}
	return &b
}

// Mode selects how a display row is rendered.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeLegacy     Mode = "legacy"
)

// DisplayRow is a presentation-ready view of one ingredient.
type DisplayRow struct {
	Mode           Mode   `json:"mode" yaml:"mode"`
	RawText        string `json:"rawText" yaml:"rawText"`
	QuantityText   string `json:"quantityText,omitempty" yaml:"quantityText,omitempty"`
	UnitText       string `json:"unitText,omitempty" yaml:"unitText,omitempty"`
	IngredientText string `json:"ingredientText,omitempty" yaml:"ingredientText,omitempty"`
	NoteText       string `json:"noteText,omitempty" yaml:"noteText,omitempty"`
}

// Lists is the pair of ingredient lists a recipe may carry. A nil slice
// means the list is absent.
type Lists struct {
	Ingredients []string
	Details     []Entry
}
