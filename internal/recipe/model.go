package recipe

import (
	"encoding/json"
	"strings"
	"time"

	"recipebox/internal/ingredient"
)

// Recipe is a stored recipe. Older recipes only carry Ingredients; upgraded
// ones also carry IngredientDetails, which may still mix plain text and
// records until they are migrated.
type Recipe struct {
	ID                string             `json:"id" db:"id"`
	Title             string             `json:"title" db:"title"`
	SourceURL         string             `json:"source_url,omitempty" db:"source_url"`
	ImageURL          string             `json:"image_url,omitempty" db:"image_url"`
	ImagePath         string             `json:"image_path,omitempty" db:"image_path"`
	Ingredients       []string           `json:"ingredients"`
	IngredientDetails []ingredient.Entry `json:"ingredientDetails,omitempty"`
	Instructions      []string           `json:"instructions"`
	Cuisine           string             `json:"cuisine" db:"cuisine"`
	CookingTime       string             `json:"cooking_time" db:"cooking_time"`
	Servings          string             `json:"servings" db:"servings"`
	Notes             string             `json:"notes,omitempty" db:"notes"`
	Favourite         bool               `json:"favourite" db:"favourite"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Recipe.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type Alias Recipe // Create an alias to avoid infinite recursion
	aux := &struct {
		Cuisine     string            `json:"cuisine"`
		Ingredients []json.RawMessage `json:"ingredients"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Cuisine = strings.ToLower(aux.Cuisine)
	r.Ingredients = IngredientLines(aux.Ingredients)

	return nil
}

// IngredientLines coerces a stored ingredients list to text lines.
// A nil list stays nil so that an absent list can be told apart.
func IngredientLines(values []json.RawMessage) []string {
	if values == nil {
		return nil
	}
	lines := make([]string, 0, len(values))
	for _, v := range values {
		lines = append(lines, ingredient.TextOf(v))
	}
	return lines
}

// IngredientLists returns both ingredient lists for display.
func (r *Recipe) IngredientLists() ingredient.Lists {
	return ingredient.Lists{Ingredients: r.Ingredients, Details: r.IngredientDetails}
}

// DisplayRows returns the recipe's ingredients ready for presentation.
func (r *Recipe) DisplayRows() []ingredient.DisplayRow {
	return ingredient.DisplayRows(r.IngredientLists())
}

// UpgradeIngredients migrates the recipe's ingredients to structured records.
// Stored details are migrated when present, otherwise the legacy text list is
// parsed. Ingredients is re-derived from the resulting records.
func (r *Recipe) UpgradeIngredients() {
	var details []ingredient.Detail
	if len(r.IngredientDetails) > 0 {
		details = ingredient.MigrateEntries(r.IngredientDetails)
		// Details holding nothing displayable must not wipe the legacy list.
		if len(ingredient.DisplayRows(ingredient.Lists{Details: ingredient.DetailEntries(details)})) == 0 {
			details = nil
		}
	}
	if details == nil {
		details = ingredient.MigrateStrings(nonBlank(r.Ingredients))
	}
	r.setDetails(details)
}

// ApplyIngredientText replaces the recipe's ingredients with edited text
// lines. Blank lines are dropped.
func (r *Recipe) ApplyIngredientText(lines []string) {
	r.setDetails(ingredient.MigrateStrings(nonBlank(lines)))
}

func (r *Recipe) setDetails(details []ingredient.Detail) {
	r.IngredientDetails = ingredient.DetailEntries(details)
	r.Ingredients = ingredient.DisplayIngredients(ingredient.Lists{Details: r.IngredientDetails})
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
