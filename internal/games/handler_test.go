package games

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romvault/internal/commit"
	"romvault/internal/store"
	"romvault/pkg/database"
	"romvault/pkg/logging"
	"romvault/pkg/models"
)

type listResponse struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Items  []models.GameDoc `json:"items"`
}

func setupTest(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "games.db")})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	require.NoError(t, database.Migrate(db))

	st := store.New(db, "games")
	var ops []commit.Op
	for _, g := range []models.Game{
		{Name: "Super Mario Bros.", System: "nes", Category: "Platformer", URL: "http://x/smb", Source: "archive"},
		{Name: "Mario Kart", System: "snes", Category: "Racing", URL: "http://x/mk", Source: "index"},
		{Name: "Tetris", System: "gb", Category: "Puzzle", URL: "http://x/tetris", Source: "mirror"},
	} {
		ops = append(ops, commit.Op{Kind: commit.Insert, Doc: models.GameDoc{Game: g}})
	}
	require.NoError(t, st.CommitBatch(context.Background(), ops))

	h := NewHandler(st)
	h.Logger = logging.Nop
	r := gin.New()
	h.RegisterRoutes(r.Group("/games"))
	return r, st
}

func get(t *testing.T, r http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestListFilters(t *testing.T) {
	r, _ := setupTest(t)

	tests := []struct {
		url   string
		total int
	}{
		{"/games", 3},
		{"/games?q=mario", 2},
		{"/games?system=NES", 1},
		{"/games?category=puzzle", 1},
		{"/games?q=mario&system=snes", 1},
		{"/games?q=zelda", 0},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := get(t, r, tt.url)
			require.Equal(t, http.StatusOK, w.Code)

			var resp listResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.total, resp.Total)
			assert.Len(t, resp.Items, tt.total)
		})
	}
}

func TestListPaging(t *testing.T) {
	r, _ := setupTest(t)

	w := get(t, r, "/games?limit=2&offset=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Limit)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Super Mario Bros.", resp.Items[0].Name)
	assert.Equal(t, "Tetris", resp.Items[1].Name)

	w = get(t, r, "/games?limit=5000")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 20, resp.Limit)
}

func TestGetByID(t *testing.T) {
	r, st := setupTest(t)

	docs, err := st.LoadAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	w := get(t, r, "/games/"+docs[0].ID)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.GameDoc
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, docs[0], got)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/games/does-not-exist").Code)
}

type brokenCatalog struct{}

func (brokenCatalog) Count(context.Context, store.ListQuery) (int, error) {
	return 0, errors.New("db closed")
}
func (brokenCatalog) List(context.Context, store.ListQuery) ([]models.GameDoc, error) {
	return nil, errors.New("db closed")
}
func (brokenCatalog) Get(context.Context, string) (*models.GameDoc, error) {
	return nil, errors.New("db closed")
}

func TestStoreErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(brokenCatalog{})
	h.Logger = logging.Nop
	r := gin.New()
	h.RegisterRoutes(r.Group("/games"))

	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/games").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/games/abc").Code)
}
