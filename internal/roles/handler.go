package roles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"romvault/pkg/logging"
)

type Handler struct {
	Checker *Checker
	Logger  zerolog.Logger
}

func NewHandler(c *Checker) *Handler {
	return &Handler{Checker: c, Logger: logging.Component("roles")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:memberId", h.check) // GET /roles/:memberId
}

func (h *Handler) check(c *gin.Context) {
	id := c.Param("memberId")

	result, err := h.Checker.Check(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, ErrInvalidMemberID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
	case errors.Is(err, ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	default:
		h.Logger.Error().Err(err).Str("member", id).Msg("role lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "role lookup failed"})
	}
}
