package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/gin-gonic/gin"
)

const msgServerError = "Server-side error"

type errorMapping struct {
	err    error
	status int
	msg    string
}

// errorTable is matched in order, so specific errors precede their kinds.
var errorTable = []errorMapping{
	{common.ErrMissingEmail, http.StatusBadRequest, "Missing email"},
	{common.ErrMissingPassword, http.StatusBadRequest, "Missing password"},
	{common.ErrUserAlreadyExists, http.StatusBadRequest, "Already exist"},
	{common.ErrMissingName, http.StatusBadRequest, "Missing name"},
	{common.ErrMissingType, http.StatusBadRequest, "Missing type"},
	{common.ErrMissingData, http.StatusBadRequest, "Missing data"},
	{common.ErrParentNotFound, http.StatusBadRequest, "Parent not found"},
	{common.ErrParentNotAFolder, http.StatusBadRequest, "Parent is not a folder"},
	{common.ErrFolderHasNoContent, http.StatusBadRequest, "A folder doesn't have content"},
	{common.ErrWrongImageSize, http.StatusBadRequest, "Wrong image size"},
	{common.ErrorBadCredentialFormat, http.StatusBadRequest, "Invalid credentials format"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{common.ErrorNotFound, http.StatusNotFound, "Not found"},
	{common.ErrorAlreadyExists, http.StatusBadRequest, "Already exist"},
	{common.ErrorValidation, http.StatusBadRequest, "Validation error"},
	{common.ErrorBadRequest, http.StatusBadRequest, "Bad request"},
}

// statusFor maps a service error to a status code and client message.
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.msg
		}
	}
	return http.StatusInternalServerError, msgServerError
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
