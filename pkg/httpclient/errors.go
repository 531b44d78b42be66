package httpclient

import (
	"fmt"
	"net/http"

	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

// FromStatus maps an upstream HTTP status to an AppError. resource names
// what was requested and id identifies it for 404s.
func FromStatus(status int, dependency, resource, id, message string) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(resource, id)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("%s rejected the request: %s", dependency, message))
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return apperrors.ServiceUnavailable(dependency, fmt.Errorf("status %d: %s", status, message))
	default:
		return apperrors.Internal(fmt.Errorf("%s returned status %d: %s", dependency, status, message))
	}
}
