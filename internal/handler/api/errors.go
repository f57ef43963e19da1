package api

import (
	"context"
	"errors"
	"net/http"

	"AstroTransit/internal/domain/models"
	xhttp "AstroTransit/pkg/http"
)

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrInvalidRange):
		return xhttp.NewAppError("ERR_INVALID_RANGE", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrRangeTooLarge):
		return xhttp.NewAppError("ERR_RANGE_TOO_LARGE", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrInvalidChart):
		return xhttp.NewAppError("ERR_INVALID_CHART", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrUnknownBody):
		return xhttp.NewAppError("ERR_UNKNOWN_BODY", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("report generation timed out").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
