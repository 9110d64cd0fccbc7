package sensor

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the sensor API. The body is kept for
// logging only and must never be forwarded to API clients.
type APIError struct {
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("sensor API status %d", e.StatusCode)
}

func IsAPIError(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr)
}
