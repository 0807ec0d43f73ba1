package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studiora/studiora-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps service sentinels onto HTTP statuses; anything
// unrecognized is a 500.
func RespondServiceError(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, code, err)
	case errors.Is(err, services.ErrForbidden):
		RespondError(c, http.StatusForbidden, code, err)
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, code, err)
	case errors.Is(err, services.ErrBadRequest):
		RespondError(c, http.StatusBadRequest, code, err)
	case errors.Is(err, services.ErrConflict):
		RespondError(c, http.StatusConflict, code, err)
	default:
		RespondError(c, http.StatusInternalServerError, code, err)
	}
}
