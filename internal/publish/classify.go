package publish

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"versecast/internal/services"
)

// Classify maps an upload error onto the service error taxonomy so the
// orchestrator can decide whether a retry is worthwhile. Rate limits and
// server-side failures are transient; auth and quota problems will not fix
// themselves and are terminal.
func Classify(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTransient, "publish", operation, "upload interrupted", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return services.Wrap(services.ErrTransient, "publish", operation, "rate limited", err)
		case apiErr.Code >= 500:
			return services.Wrap(services.ErrTransient, "publish", operation, "service unavailable", err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return services.Wrap(services.ErrTerminal, "publish", operation, "authorization rejected", err)
		default:
			return services.Wrap(services.ErrTerminal, "publish", operation, "request rejected", err)
		}
	}

	// Network errors and everything else unidentified: worth retrying.
	return services.Wrap(services.ErrTransient, "publish", operation, "upload failed", err)
}
