package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindConflict:          http.StatusConflict,
	domain.KindInsufficientStock: http.StatusConflict,
	domain.KindConcurrency:       http.StatusServiceUnavailable,
	domain.KindForbidden:         http.StatusForbidden,
}

// respondError writes err with the status of its domain kind. Errors outside
// the taxonomy are logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error(), "kind": kind}
	if code := domain.CodeOf(err); code != "" {
		body["code"] = code
	}
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		body["requested"] = insufficient.Requested
		body["available"] = insufficient.Available
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "kind": domain.KindValidation})
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseOptionalIDQuery(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// parseDateQuery reads a YYYY-MM-DD query parameter, defaulting to fallback.
func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		respondError(c, err)
		return time.Time{}, false
	}
	return d, true
}

func parseOptionalDate(c *gin.Context, raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	d, err := domain.ParseDate(strings.TrimSpace(*raw))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &d, true
}
