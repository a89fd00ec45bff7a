package response

import (
	"errors"
	"net/http"

	"songmail/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the envelope matching the error's kind. Unknown errors
// are logged and reported as a generic 500.
func FromError(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		var fields validation.Errors
		if errors.As(err, &fields) {
			ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", fieldMessages(fields))
			return
		}
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case domain.ErrNotFound:
		Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case domain.ErrAuth:
		Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case domain.ErrAdapter:
		ErrorWithDetails(c, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "External service unavailable, please retry", gin.H{"retriable": true})
	case domain.ErrStorage:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "STORAGE_ERROR", "Something went wrong, please retry")
	default:
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unclassified error")
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func fieldMessages(fields validation.Errors) map[string]string {
	out := make(map[string]string, len(fields))
	for field, err := range fields {
		if err != nil {
			out[field] = err.Error()
		}
	}
	return out
}
