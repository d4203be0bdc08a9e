// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package netutil_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"

	"github.com/boldos/bold/lib/netutil"
)

func get(t *testing.T, url string) error {
	t.Helper()
	response, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer response.Body.Close()
	return netutil.CheckResponse(response)
}

func TestCheckResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/missing":
			http.Error(w, "no such artifact", http.StatusNotFound)
		case "/large":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(strings.Repeat("x", 2*netutil.MaxErrorBody)))
		}
	}))
	defer server.Close()

	if err := get(t, server.URL+"/ok"); err != nil {
		t.Errorf("CheckResponse(200) = %v", err)
	}

	err := get(t, server.URL+"/missing")
	var statusErr *netutil.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("CheckResponse(404) = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound || statusErr.Body != "no such artifact" {
		t.Errorf("StatusError = %+v", statusErr)
	}
	if !strings.Contains(err.Error(), "/missing") {
		t.Errorf("error %q does not name the URL", err)
	}
	if !netutil.IsNotFound(err) || netutil.IsTransient(err) {
		t.Errorf("404 classification: IsNotFound=%v IsTransient=%v", netutil.IsNotFound(err), netutil.IsTransient(err))
	}

	err = get(t, server.URL+"/large")
	if !errors.As(err, &statusErr) || len(statusErr.Body) != netutil.MaxErrorBody {
		t.Errorf("large error body not bounded: %d bytes", len(statusErr.Body))
	}
	if !netutil.IsTransient(err) {
		t.Error("502 should be transient")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("download: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("download: %w", context.DeadlineExceeded), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset", syscall.ECONNRESET, true},
		{"permission", syscall.EACCES, false},
		{"plain", errors.New("checksum mismatch"), false},
		{"too many requests", &netutil.StatusError{Code: http.StatusTooManyRequests}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := netutil.IsTransient(test.err); got != test.want {
				t.Errorf("IsTransient(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}
