package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
)

// maxErrorBody bounds how much of an error response body is read.
const maxErrorBody = 1 << 20

// upstreamError covers the error shapes the REST backend is known to emit:
// the {"error":{"code","message"}} envelope, a flat {"message"} body and
// ASP.NET style {"title"} problem details.
type upstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
	Title   string `json:"title"`
}

func (u upstreamError) message() string {
	switch {
	case u.Error != nil && u.Error.Message != "":
		return u.Error.Message
	case u.Message != "":
		return u.Message
	default:
		return u.Title
	}
}

// ParseResponseError consumes and closes a non-2xx response body and
// translates it into an AppError. Callers must only pass error responses.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", upstream, resp.StatusCode, err)
	}

	msg := strings.TrimSpace(string(body))
	var parsed upstreamError
	if json.Unmarshal(body, &parsed) == nil && parsed.message() != "" {
		msg = parsed.message()
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, msg, upstream)
}

func mapStatus(status int, message, upstream string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream+" resource", message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return apperrors.ServiceUnavailable(qualified, nil)
	case status >= 500:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: fmt.Sprintf("%s server error (%d): %s", upstream, status, message),
			Status:  http.StatusBadGateway,
			Err:     apperrors.ErrServiceUnavail,
		}
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: qualified,
			Status:  status,
		}
	}
}

// IsClientError reports whether status is a 4xx code.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
