package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no recipe has the requested ID.
	ErrNotFound = errors.New("recipe not found")
	// ErrRecipeLimitReached is returned by Add when a free account is full.
	ErrRecipeLimitReached = errors.New("recipe limit reached")
)

// Filter narrows the result of List. Zero values match everything.
type Filter struct {
	Query          string
	Cuisine        string
	FavouritesOnly bool
}

// Entitlement describes what the current account may store.
type Entitlement struct {
	Pro         bool `json:"pro"`
	RecipeCount int  `json:"recipe_count"`
	// RecipeLimit is zero when there is no limit.
	RecipeLimit int `json:"recipe_limit"`
}

// CanAdd reports whether one more recipe may be stored.
func (e Entitlement) CanAdd() bool {
	return e.Pro || e.RecipeLimit <= 0 || e.RecipeCount < e.RecipeLimit
}

// Store defines the interface for recipe data operations.
type Store interface {
	Add(ctx context.Context, recipe *Recipe) error
	Get(ctx context.Context, id string) (*Recipe, error)
	List(ctx context.Context, filter Filter) ([]*Recipe, error)
	Update(ctx context.Context, recipe *Recipe) error
	Delete(ctx context.Context, id string) error
	ToggleFavourite(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	GetEntitlement(ctx context.Context) (Entitlement, error)
	SetPro(ctx context.Context, pro bool) error
}

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db        *sqlx.DB
	freeLimit int
	now       func() time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL DEFAULT '',
		ingredients JSONB,
		ingredient_details JSONB,
		instructions JSONB,
		cuisine TEXT NOT NULL DEFAULT '',
		cooking_time TEXT NOT NULL DEFAULT '',
		servings TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		favourite BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS entitlement (
		id INTEGER PRIMARY KEY,
		pro BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

var recipeColumns = []interface{}{
	"id", "title", "source_url", "image_url", "image_path",
	"ingredients", "ingredient_details", "instructions",
	"cuisine", "cooking_time", "servings", "notes", "favourite",
	"created_at", "updated_at",
}

const selectRecipe = `SELECT id, title, source_url, image_url, image_path, ingredients, ingredient_details, instructions, cuisine, cooking_time, servings, notes, favourite, created_at, updated_at FROM recipes`

// NewPostgresStore connects to the database and creates the tables if needed.
// freeLimit caps the number of recipes a non-Pro account may store; zero
// disables the cap.
func NewPostgresStore(dataSourceName string, freeLimit int) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return NewStore(db, freeLimit), nil
}

// NewStore wraps an existing connection without touching the schema.
func NewStore(db *sqlx.DB, freeLimit int) *PostgresStore {
	return &PostgresStore{db: db, freeLimit: freeLimit, now: time.Now}
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type recipeRow struct {
	ID                string    `db:"id"`
	Title             string    `db:"title"`
	SourceURL         string    `db:"source_url"`
	ImageURL          string    `db:"image_url"`
	ImagePath         string    `db:"image_path"`
	Ingredients       []byte    `db:"ingredients"`
	IngredientDetails []byte    `db:"ingredient_details"`
	Instructions      []byte    `db:"instructions"`
	Cuisine           string    `db:"cuisine"`
	CookingTime       string    `db:"cooking_time"`
	Servings          string    `db:"servings"`
	Notes             string    `db:"notes"`
	Favourite         bool      `db:"favourite"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (row *recipeRow) toRecipe() (*Recipe, error) {
	r := &Recipe{
		ID:          row.ID,
		Title:       row.Title,
		SourceURL:   row.SourceURL,
		ImageURL:    row.ImageURL,
		ImagePath:   row.ImagePath,
		Cuisine:     row.Cuisine,
		CookingTime: row.CookingTime,
		Servings:    row.Servings,
		Notes:       row.Notes,
		Favourite:   row.Favourite,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	if len(row.Ingredients) > 0 {
		var values []json.RawMessage
		if err := json.Unmarshal(row.Ingredients, &values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
		r.Ingredients = IngredientLines(values)
	}
	if len(row.IngredientDetails) > 0 {
		if err := json.Unmarshal(row.IngredientDetails, &r.IngredientDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredient details: %w", err)
		}
	}
	if len(row.Instructions) > 0 {
		if err := json.Unmarshal(row.Instructions, &r.Instructions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instructions: %w", err)
		}
	}

	return r, nil
}

type jsonColumns struct {
	ingredients []byte
	// ingredientDetails stays nil (SQL NULL) for recipes that were never upgraded.
	ingredientDetails interface{}
	instructions      []byte
}

func marshalColumns(r *Recipe) (jsonColumns, error) {
	var cols jsonColumns
	var err error

	cols.ingredients, err = json.Marshal(orEmpty(r.Ingredients))
	if err != nil {
		return cols, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	if r.IngredientDetails != nil {
		details, err := json.Marshal(r.IngredientDetails)
		if err != nil {
			return cols, fmt.Errorf("failed to marshal ingredient details: %w", err)
		}
		cols.ingredientDetails = details
	}
	cols.instructions, err = json.Marshal(orEmpty(r.Instructions))
	if err != nil {
		return cols, fmt.Errorf("failed to marshal instructions: %w", err)
	}
	return cols, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Add stores a new recipe, assigning its ID and timestamps.
// It fails with ErrRecipeLimitReached when the account is full.
func (s *PostgresStore) Add(ctx context.Context, recipe *Recipe) error {
	ent, err := s.GetEntitlement(ctx)
	if err != nil {
		return err
	}
	if !ent.CanAdd() {
		return ErrRecipeLimitReached
	}

	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	recipe.Cuisine = strings.ToLower(recipe.Cuisine)
	recipe.CreatedAt = s.now().UTC()
	recipe.UpdatedAt = recipe.CreatedAt

	cols, err := marshalColumns(recipe)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO recipes (id, title, source_url, image_url, image_path, ingredients, ingredient_details, instructions, cuisine, cooking_time, servings, notes, favourite, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)",
		recipe.ID,
		recipe.Title,
		recipe.SourceURL,
		recipe.ImageURL,
		recipe.ImagePath,
		cols.ingredients,
		cols.ingredientDetails,
		cols.instructions,
		recipe.Cuisine,
		recipe.CookingTime,
		recipe.Servings,
		recipe.Notes,
		recipe.Favourite,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}

	return nil
}

// Get retrieves a recipe by its ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Recipe, error) {
	var row recipeRow
	err := s.db.GetContext(ctx, &row, selectRecipe+" WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return row.toRecipe()
}

// List retrieves recipes matching the filter, newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Recipe, error) {
	ds := goqu.Dialect("postgres").
		From("recipes").
		Select(recipeColumns...).
		Order(goqu.C("created_at").Desc())

	if q := strings.TrimSpace(filter.Query); q != "" {
		ds = ds.Where(goqu.C("title").ILike("%" + q + "%"))
	}
	if cuisine := strings.TrimSpace(filter.Cuisine); cuisine != "" {
		ds = ds.Where(goqu.C("cuisine").Eq(strings.ToLower(cuisine)))
	}
	if filter.FavouritesOnly {
		ds = ds.Where(goqu.C("favourite").IsTrue())
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	var rows []recipeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}

	recipes := make([]*Recipe, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRecipe()
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// Update overwrites a stored recipe. CreatedAt and Favourite are kept.
func (s *PostgresStore) Update(ctx context.Context, recipe *Recipe) error {
	recipe.Cuisine = strings.ToLower(recipe.Cuisine)
	recipe.UpdatedAt = s.now().UTC()

	cols, err := marshalColumns(recipe)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE recipes SET title = $2, source_url = $3, image_url = $4, image_path = $5, ingredients = $6, ingredient_details = $7, instructions = $8, cuisine = $9, cooking_time = $10, servings = $11, notes = $12, updated_at = $13 WHERE id = $1",
		recipe.ID,
		recipe.Title,
		recipe.SourceURL,
		recipe.ImageURL,
		recipe.ImagePath,
		cols.ingredients,
		cols.ingredientDetails,
		cols.instructions,
		recipe.Cuisine,
		recipe.CookingTime,
		recipe.Servings,
		recipe.Notes,
		recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes a recipe.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return expectOneRow(result)
}

// ToggleFavourite flips the favourite flag and returns its new value.
func (s *PostgresStore) ToggleFavourite(ctx context.Context, id string) (bool, error) {
	var favourite bool
	err := s.db.QueryRowxContext(ctx,
		"UPDATE recipes SET favourite = NOT favourite, updated_at = $2 WHERE id = $1 RETURNING favourite",
		id, s.now().UTC(),
	).Scan(&favourite)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to toggle favourite: %w", err)
	}
	return favourite, nil
}

// Count returns the number of stored recipes.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM recipes"); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// GetEntitlement returns the Pro flag together with the current usage.
func (s *PostgresStore) GetEntitlement(ctx context.Context) (Entitlement, error) {
	var ent Entitlement
	err := s.db.GetContext(ctx, &ent.Pro, "SELECT pro FROM entitlement WHERE id = 1")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ent, fmt.Errorf("failed to get entitlement: %w", err)
	}

	ent.RecipeCount, err = s.Count(ctx)
	if err != nil {
		return ent, err
	}
	ent.RecipeLimit = s.freeLimit
	return ent, nil
}

// SetPro turns the Pro entitlement on or off.
func (s *PostgresStore) SetPro(ctx context.Context, pro bool) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entitlement (id, pro, updated_at) VALUES (1, $1, $2) ON CONFLICT (id) DO UPDATE SET pro = $1, updated_at = $2",
		pro, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save entitlement: %w", err)
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)
