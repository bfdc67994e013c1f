// Package games serves the reconciled game collection over HTTP.
package games

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"romvault/internal/store"
	"romvault/pkg/logging"
	"romvault/pkg/models"
)

// Catalog is the read side of the document store.
type Catalog interface {
	Count(ctx context.Context, q store.ListQuery) (int, error)
	List(ctx context.Context, q store.ListQuery) ([]models.GameDoc, error)
	Get(ctx context.Context, id string) (*models.GameDoc, error)
}

type Handler struct {
	Catalog Catalog
	Logger  zerolog.Logger
}

func NewHandler(c Catalog) *Handler {
	return &Handler{Catalog: c, Logger: logging.Component("games")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /games
	rg.GET("/:id", h.getByID) // GET /games/:id
}

func (h *Handler) list(c *gin.Context) {
	q := store.ListQuery{
		Q:        c.Query("q"),
		System:   c.Query("system"),
		Category: c.Query("category"),
		Limit:    parseInt(c.Query("limit"), 20),
		Offset:   parseInt(c.Query("offset"), 0),
	}.Normalized()

	total, err := h.Catalog.Count(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error().Err(err).Msg("count games")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Catalog.List(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error().Err(err).Msg("list games")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id := c.Param("id")
	g, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error().Err(err).Str("id", id).Msg("get game")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
