package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
)

// Success writes the standard success envelope.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

// Error writes the standard error envelope, mapping typed scheduling
// errors onto their HTTP status.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode()
		message = appErr.Message
	}

	c.JSON(status, gin.H{"status": "error", "message": message})
}

// BadRequest writes a 400 with the binding/parsing failure.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": message})
}
