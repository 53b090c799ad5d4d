package api

import (
	"errors"
	"log"
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// statusFor сопоставляет ошибку сервиса HTTP статусу
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrVariantaExists),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNothingToRequest):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondError отвечает {"error", "details"} со статусом по типу ошибки
func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// badRequest ответ на неразобранный запрос
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Neplatné parametry požadavku",
		"details": err.Error(),
	})
}
