package handlers

import (
	"net/http"

	"jobsboard-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// statusForKind maps the workflow error taxonomy to HTTP status codes
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.ErrorKindValidation:
		return http.StatusBadRequest
	case services.ErrorKindAuthorization:
		return http.StatusUnauthorized
	case services.ErrorKindNotFound:
		return http.StatusNotFound
	case services.ErrorKindReverted:
		return http.StatusConflict
	case services.ErrorKindSigner:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// respondClassified classifies an error and writes the matching JSON response
func respondClassified(c *gin.Context, err error) {
	classified := services.Classify(err)
	c.JSON(statusForKind(classified.Kind), gin.H{
		"error": classified.Error(),
		"kind":  string(classified.Kind),
	})
}
