// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// MaxErrorBody bounds how much of an error response body is kept.
const MaxErrorBody = 4 << 10

// StatusError is an HTTP response other than 200 OK.
type StatusError struct {
	URL    string
	Status string
	Code   int

	// Body is the start of the response body, trimmed of whitespace.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: %s: %s", e.URL, e.Status, e.Body)
}

// CheckResponse returns nil for 200 OK and a *StatusError otherwise.
// The caller still closes the body.
func CheckResponse(response *http.Response) error {
	if response.StatusCode == http.StatusOK {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(response.Body, MaxErrorBody))
	url := ""
	if response.Request != nil && response.Request.URL != nil {
		url = response.Request.URL.Redacted()
	}
	return &StatusError{
		URL:    url,
		Status: response.Status,
		Code:   response.StatusCode,
		Body:   strings.TrimSpace(string(data)),
	}
}

// IsNotFound reports whether err is a 404 or 410 response.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code == http.StatusNotFound || statusErr.Code == http.StatusGone
}

// IsTransient reports whether retrying the request could succeed.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNREFUSED || errno == syscall.ECONNRESET || errno == syscall.EPIPE
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
