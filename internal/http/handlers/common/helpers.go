// Package common — общие хелперы HTTP-обработчиков.
package common

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/http/middleware"
)

var errNoPrincipal = errors.New("principal not found in context")

// CurrentPrincipal извлекает принципала, положенного AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (domain.Principal, error) {
	raw, exists := c.Get(middleware.ContextPrincipalKey)
	if !exists {
		return domain.Principal{}, errNoPrincipal
	}
	p, ok := raw.(domain.Principal)
	if !ok {
		return domain.Principal{}, errNoPrincipal
	}
	return p, nil
}

// ParseUUIDParam читает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// ParseUUIDQuery читает необязательный UUID из query; пустое значение — nil.
func ParseUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseTimeQuery читает необязательное время в RFC3339.
func ParseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParsePage читает page и page_size; мусор заменяется дефолтами.
func ParsePage(c *gin.Context) calendar.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return calendar.PageRequest{Page: page, PageSize: size}.Normalize()
}

// StatusFor сопоставляет доменную ошибку HTTP-статусу.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindOutOfAvailability, domain.KindSlotConflict,
		domain.KindIllegalTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError отвечает по коду доменной ошибки. Внутренние ошибки
// не раскрываются клиенту, а попадают в c.Errors для логгера.
func RespondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error", "kind": kind})
		return
	}

	reason := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Reason != "" {
		reason = de.Reason
	}
	c.JSON(status, gin.H{"error": reason, "kind": kind})
}

func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func RespondUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
}
