package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_home(t *testing.T) {
	_, srv := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to CRMS API!", rec.Body.String())
}

func Test_metrics(t *testing.T) {
	_, srv := setup(t)

	for i := 0; i < 2; i++ {
		req, rec := newRequest(http.MethodGet, "/")
		srv.ServeHTTP(rec, req)
	}
	req, rec := newRequest(http.MethodGet, "/me")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newRequest(http.MethodGet, "/metrics")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `crms_http_requests_total{code="200",method="GET",path="/"} 2`)
	assert.Contains(t, body, `crms_http_requests_total{code="401",method="GET",path="/me"} 1`)
	assert.Contains(t, body, `crms_http_request_duration_seconds_count{method="GET",path="/"} 2`)
}
