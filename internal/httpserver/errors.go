package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"umrah-backoffice/internal/domain"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrRoomNotEmpty),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrImportParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError hides the detail of unexpected failures from the client; the
// request logger still records it.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusBadGateway:
		msg = "store unavailable"
	}
	c.JSON(status, gin.H{"error": msg})
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

func badRequest(c *gin.Context, err error) {
	writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
}
