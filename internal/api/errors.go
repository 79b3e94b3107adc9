package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/billing"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/encoder"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/playback"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
)

// errorStatus maps a domain error onto an HTTP status and a stable code.
// Only error types and codes are inspected, never message text.
func errorStatus(err error) (int, string) {
	var editErr *editor.EditError
	var validErr *project.ValidationError
	var policyErr *entitlement.PolicyError
	var jobErr *export.JobError
	var apiErr *cloud.APIError

	switch {
	case errors.As(err, &editErr):
		switch editErr.Code {
		case editor.CodeOverlap:
			return http.StatusConflict, editErr.Code
		case editor.CodeNotFound:
			return http.StatusNotFound, editErr.Code
		case editor.CodeNoProject:
			return http.StatusConflict, editErr.Code
		default:
			return http.StatusUnprocessableEntity, editErr.Code
		}
	case errors.As(err, &validErr):
		return http.StatusUnprocessableEntity, validErr.Code
	case errors.As(err, &policyErr):
		return http.StatusForbidden, policyErr.Code
	case errors.As(err, &jobErr):
		switch jobErr.Code {
		case export.CodeInvalidSettings:
			return http.StatusBadRequest, jobErr.Code
		case export.CodeEncoderFailed:
			return http.StatusBadGateway, jobErr.Code
		default:
			return http.StatusConflict, jobErr.Code
		}
	case errors.Is(err, export.ErrJobNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, cloud.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, store.ErrForbidden),
		errors.Is(err, cloud.ErrPermissionDenied),
		errors.Is(err, playback.ErrOutsideRoot):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, encoder.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT"
	case errors.Is(err, billing.ErrUnsupported):
		return http.StatusNotImplemented, "UNSUPPORTED"
	case errors.Is(err, cloud.ErrOffline):
		return http.StatusServiceUnavailable, "OFFLINE"
	case errors.Is(err, cloud.ErrNetwork):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case errors.As(err, &apiErr):
		if apiErr.IsRetryable() {
			return http.StatusBadGateway, "UPSTREAM_ERROR"
		}
		return http.StatusBadRequest, "UPSTREAM_REJECTED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		msg = "internal server error"
	}
	WriteError(w, status, msg, code)
}
