// ABOUTME: Tests for the remote API client against httptest servers.
// ABOUTME: Covers query encoding, envelopes, headers and error mapping.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/2389/basiclist/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEncode(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	q := Query{
		Page:    2,
		PerPage: 20,
		Filters: map[string]any{
			"username":    "ali",
			"empty":       "",
			"nothing":     nil,
			"groups":      []string{"1", "3"},
			"create_time": []time.Time{from, to},
			"status":      1,
		},
	}
	assert.Equal(t,
		"create_time=2024-01-01T00%3A00%3A00Z%2C2024-02-01T00%3A00%3A00Z&groups=1%2C3&page=2&per_page=20&status=1&username=ali",
		q.Encode())
	assert.Equal(t, "", Query{}.Encode())
}

func TestQuerySort(t *testing.T) {
	assert.Equal(t, "order=asc&page=1&sort=id", Query{Page: 1, Sort: "id"}.Encode())
	assert.Equal(t, "order=desc&sort=id", Query{Sort: "id", Desc: true}.Encode())
	assert.Empty(t, Query{Desc: true}.Values().Get("order"), "order needs a sort column")
}

func TestList(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admins", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-KEY")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":{
			"layout":{"tableColumn":[{"key":"username","title":"Username","type":"text"}]},
			"dataSource":[{"id":1,"username":"alice"}],
			"meta":{"total":1,"page":1,"per_page":10}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithAPIKey("secret"))
	data, err := c.List(context.Background(), "/api/admins?trash=onlyTrashed", Query{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, "page=1&per_page=10&trash=onlyTrashed", gotQuery)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, data.DataSource, 1)
	assert.Equal(t, "alice", data.DataSource[0]["username"])
	assert.Equal(t, 1, data.Meta.Total)
}

func TestPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admins/7", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":{"page":{"title":"Edit"},"layout":{"tabs":[]},"dataSource":{"id":7}}}`)
	}))
	defer srv.Close()

	data, err := New(srv.URL).Page(context.Background(), "/api/admins/7")
	require.NoError(t, err)
	assert.Equal(t, "Edit", data.Page.Title)
	assert.Equal(t, "7", data.DataSource.IDString())
}

func TestWrite(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"success":true,"message":"Deleted successfully."}`)
	}))
	defer srv.Close()

	m := metrics.New()
	c := New(srv.URL, WithMetrics(m))
	res, err := c.Write(context.Background(), WriteRequest{URI: "/api/admins/delete", Body: map[string]any{"type": "delete", "ids": []any{7}}})
	require.NoError(t, err)
	assert.Equal(t, "Deleted successfully.", res.Message)
	assert.Equal(t, http.MethodPost, gotMethod, "method defaults to POST")
	assert.Equal(t, "delete", gotBody["type"])
	assert.Equal(t, 1, testutil.CollectAndCount(m.APIDuration))

	_, err = c.Write(context.Background(), WriteRequest{Method: "put", URI: "/api/admins/7", Body: map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"envelope message", http.StatusBadRequest, `{"success":false,"message":"username is required"}`, "username is required"},
		{"error envelope", http.StatusNotFound, `{"code":"not_found","message":"admin not found","status":404}`, "admin not found"},
		{"plain text", http.StatusInternalServerError, "oops\n", "oops"},
		{"success false on 200", http.StatusOK, `{"success":false,"message":"denied"}`, "denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Page(context.Background(), "/api/admins/1")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Error())
		})
	}
}

func TestErrorMessageKeepsRunesWhole(t *testing.T) {
	body := "a" + strings.Repeat("é", 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Page(context.Background(), "/api/admins/1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.Equal(t, "a"+strings.Repeat("é", 99), apiErr.Message)
	assert.Equal(t, "abc", truncate("abc", 200))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL).List(context.Background(), "/api/admins", Query{})
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestEmptyURI(t *testing.T) {
	_, err := New("http://example.invalid").Page(context.Background(), "")
	assert.Error(t, err)
}
