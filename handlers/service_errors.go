package handlers

import (
	"net/http"

	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/Ashwin12159/Control-Plane/utils"
	"go.uber.org/zap"
)

// StatusForError returns the HTTP status for a service error
func StatusForError(err error) int {
	switch {
	case services.IsValidationError(err),
		services.IsUnknownRegionError(err),
		services.IsUpstreamRejectedError(err):
		return http.StatusBadRequest
	case services.IsUnauthorizedError(err):
		return http.StatusUnauthorized
	case services.IsForbiddenError(err):
		return http.StatusForbidden
	case services.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps domain errors to HTTP responses.
// The body is always {"error": message}.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := StatusForError(err)
	msg := services.GetErrorMessage(err)

	switch {
	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		msg = "An internal error occurred"
	case services.GetErrorType(err) == "":
		logger.Error("unhandled error type", zap.Error(err))
		msg = "An unexpected error occurred"
	case status == http.StatusInternalServerError:
		// configuration and upstream failures keep their message for operators
		logger.Warn("service error",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
	default:
		logger.Debug("handled service error",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.String("message", msg),
			zap.Any("details", services.GetErrorDetails(err)))
	}

	if err := utils.WriteError(w, status, msg); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}
