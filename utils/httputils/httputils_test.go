// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

// dummyRoundTripper is useful to simulate a response.
type dummyRoundTripper struct {
	response *http.Response
	lastReq  *http.Request
}

func (d *dummyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastReq = req

	if d.response != nil {
		return d.response, nil
	}

	return nil, nil
}

func TestLoggingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	drt := &dummyRoundTripper{
		response: &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("response body")),
		},
	}

	lt := &LoggingRoundTripper{
		Transport: drt,
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://openapi.seoul.go.kr:8088/key/json/culturalEventInfo/1/5/", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = lt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}

	out := logBuffer.String()
	if !strings.Contains(out, "> GET /key/json/culturalEventInfo/1/5/") {
		t.Errorf("request dump missing, got:\n%s", out)
	}

	if !strings.Contains(out, "< RESPONSE:") {
		t.Errorf("response dump missing, got:\n%s", out)
	}

	if !strings.Contains(out, "response body") {
		t.Errorf("response body missing from dump, got:\n%s", out)
	}
}

func TestLoggingRoundTripperNilWriterPassesThrough(t *testing.T) {
	drt := &dummyRoundTripper{
		response: &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("")),
		},
	}

	lt := &LoggingRoundTripper{Transport: drt}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := lt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	drt := &dummyRoundTripper{
		response: &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("")),
		},
	}

	rt := &AppendRequestHeadersRoundTripper{
		Transport: drt,
		Headers: map[string]string{
			"User-Agent": "munhwamap/test",
			"Accept":     "application/json",
		},
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}

	if got := drt.lastReq.Header.Get("User-Agent"); got != "munhwamap/test" {
		t.Errorf("User-Agent = %q, want %q", got, "munhwamap/test")
	}

	if got := drt.lastReq.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want %q", got, "application/json")
	}
}
