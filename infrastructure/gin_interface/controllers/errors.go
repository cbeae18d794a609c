package controllers

import (
	"errors"
	"net/http"
	"story-video-pipeline/domain"
	"story-video-pipeline/infrastructure/gin_interface/dto"

	"github.com/gin-gonic/gin"
)

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusCodeFor(err), dto.ErrorResponse{Error: err.Error()})
}
