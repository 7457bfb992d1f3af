package recipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/ingredient"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func setupMockStore(t *testing.T, freeLimit int) (*PostgresStore, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	store := NewStore(sqlx.NewDb(mockDB, "postgres"), freeLimit)
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

var rowColumns = []string{
	"id", "title", "source_url", "image_url", "image_path",
	"ingredients", "ingredient_details", "instructions",
	"cuisine", "cooking_time", "servings", "notes", "favourite",
	"created_at", "updated_at",
}

func TestGet(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectQuery(`SELECT .+ FROM recipes WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			"r1", "Pancakes", "https://example.com/pancakes", "", "",
			[]byte(`["2 eggs", 3]`),
			[]byte(`["1 cup milk", {"raw": "2 tbsp sugar", "ingredient": "sugar", "quantity": 2, "unit": "tbsp"}]`),
			[]byte(`["Mix", "Fry"]`),
			"french", "20 minutes", "4", "", true,
			fixedNow, fixedNow,
		))

	r, err := store.Get(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, "Pancakes", r.Title)
	assert.Equal(t, []string{"2 eggs", "3"}, r.Ingredients)
	assert.Equal(t, []string{"Mix", "Fry"}, r.Instructions)
	assert.True(t, r.Favourite)

	require.Len(t, r.IngredientDetails, 2)
	assert.Equal(t, ingredient.LegacyEntry("1 cup milk"), r.IngredientDetails[0])
	assert.Equal(t, ingredient.EntryDetail, r.IngredientDetails[1].Kind)
	assert.Equal(t, "sugar", r.IngredientDetails[1].Detail.Ingredient)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NullDetails(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectQuery(`SELECT .+ FROM recipes WHERE id = \$1`).
		WithArgs("r2").
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			"r2", "Toast", "", "", "",
			[]byte(`["bread"]`), nil, nil,
			"", "", "", "", false,
			fixedNow, fixedNow,
		))

	r, err := store.Get(context.Background(), "r2")
	require.NoError(t, err)
	assert.Nil(t, r.IngredientDetails)
	assert.Nil(t, r.Instructions)
	assert.Equal(t, []ingredient.DisplayRow{{Mode: ingredient.ModeLegacy, RawText: "bread"}}, r.DisplayRows())
}

func TestGet_NotFound(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectQuery(`SELECT .+ FROM recipes WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_Filter(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectQuery(`SELECT .+ FROM "recipes" WHERE .+"title" ILIKE \$1.+"cuisine" = \$2.+"favourite" IS TRUE.+ORDER BY "created_at" DESC`).
		WithArgs("%pasta%", "italian").
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow("a", "Pasta al limone", "", "", "", []byte(`["pasta"]`), nil, []byte(`[]`), "italian", "", "", "", true, fixedNow, fixedNow).
			AddRow("b", "Pasta e fagioli", "", "", "", []byte(`["beans"]`), nil, []byte(`[]`), "italian", "", "", "", true, fixedNow, fixedNow))

	recipes, err := store.List(context.Background(), Filter{Query: " pasta ", Cuisine: "Italian", FavouritesOnly: true})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Pasta al limone", recipes[0].Title)
	assert.Equal(t, "Pasta e fagioli", recipes[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_NoFilter(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectQuery(`SELECT .+ FROM "recipes" ORDER BY "created_at" DESC`).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	recipes, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, recipes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectEntitlement(mock sqlmock.Sqlmock, pro bool, count int) {
	mock.ExpectQuery(`SELECT pro FROM entitlement WHERE id = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"pro"}).AddRow(pro))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM recipes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestAdd(t *testing.T) {
	store, mock := setupMockStore(t, 10)

	expectEntitlement(mock, false, 3)
	mock.ExpectExec(`INSERT INTO recipes`).
		WithArgs(
			sqlmock.AnyArg(), "Shakshuka", "", "", "",
			[]byte(`["2 eggs"]`), nil, []byte(`[]`),
			"middle eastern", "", "", "", false,
			fixedNow, fixedNow,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := &Recipe{Title: "Shakshuka", Cuisine: "Middle Eastern", Ingredients: []string{"2 eggs"}}
	require.NoError(t, store.Add(context.Background(), r))

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_LimitReached(t *testing.T) {
	store, mock := setupMockStore(t, 3)

	expectEntitlement(mock, false, 3)

	err := store.Add(context.Background(), &Recipe{Title: "One too many"})
	assert.ErrorIs(t, err, ErrRecipeLimitReached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_ProIgnoresLimit(t *testing.T) {
	store, mock := setupMockStore(t, 3)

	mock.ExpectQuery(`SELECT pro FROM entitlement WHERE id = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"pro"}).AddRow(true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM recipes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(50))
	mock.ExpectExec(`INSERT INTO recipes`).WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Add(context.Background(), &Recipe{Title: "Fifty-one"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntitlement_NoRow(t *testing.T) {
	store, mock := setupMockStore(t, 25)

	mock.ExpectQuery(`SELECT pro FROM entitlement WHERE id = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"pro"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM recipes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	ent, err := store.GetEntitlement(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Entitlement{Pro: false, RecipeCount: 7, RecipeLimit: 25}, ent)
	assert.True(t, ent.CanAdd())
}

func TestUpdate(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	r := &Recipe{ID: "r1", Title: "Soup"}
	r.ApplyIngredientText([]string{"1 l stock"})

	mock.ExpectExec(`UPDATE recipes SET title = \$2`).
		WithArgs(
			"r1", "Soup", "", "", "",
			[]byte(`["1 l stock"]`),
			sqlmock.AnyArg(),
			[]byte(`[]`),
			"", "", "", "", fixedNow,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Update(context.Background(), r))
	assert.Equal(t, fixedNow, r.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectExec(`UPDATE recipes SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &Recipe{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectExec(`DELETE FROM recipes WHERE id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipes WHERE id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), "r1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "r1"), ErrNotFound)
}

func TestToggleFavourite(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectQuery(`UPDATE recipes SET favourite = NOT favourite`).
		WithArgs("r1", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"favourite"}).AddRow(true))
	mock.ExpectQuery(`UPDATE recipes SET favourite = NOT favourite`).
		WithArgs("missing", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"favourite"}))

	fav, err := store.ToggleFavourite(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, fav)

	_, err = store.ToggleFavourite(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetPro(t *testing.T) {
	store, mock := setupMockStore(t, 0)

	mock.ExpectExec(`INSERT INTO entitlement`).
		WithArgs(true, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO entitlement`).
		WithArgs(false, fixedNow).
		WillReturnError(errors.New("connection reset"))

	assert.NoError(t, store.SetPro(context.Background(), true))
	assert.ErrorContains(t, store.SetPro(context.Background(), false), "connection reset")
}
