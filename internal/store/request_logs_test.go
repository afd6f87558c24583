// ABOUTME: Tests for request log storage operations.
// ABOUTME: Covers the filtered logs list, deletes and the dashboard aggregates.

package store

import (
	"context"
	"testing"
	"time"
)

func seedLogs(t *testing.T, s *Store, logs []*RequestLog) {
	t.Helper()
	for _, l := range logs {
		if err := s.LogRequest(l); err != nil {
			t.Fatalf("LogRequest() error = %v", err)
		}
	}
}

func TestListRequestLogs_Filters(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	seedLogs(t, s, []*RequestLog{
		{PluginName: "admins", Method: "GET", Path: "/api/admins", StatusCode: 200, DurationMs: 3, Timestamp: now.Add(-3 * time.Hour)},
		{PluginName: "admins", Method: "POST", Path: "/api/admins", StatusCode: 400, DurationMs: 5, Timestamp: now.Add(-2 * time.Hour)},
		{PluginName: "admins", Method: "PUT", Path: "/api/admins/7", StatusCode: 200, DurationMs: 4, Timestamp: now.Add(-1 * time.Hour)},
		{PluginName: "unknown", Method: "GET", Path: "/api/other_thing", StatusCode: 404, DurationMs: 1, Timestamp: now},
	})

	tests := []struct {
		name      string
		query     RequestLogQuery
		wantTotal int
		wantFirst string
	}{
		{"everything newest first", RequestLogQuery{}, 4, "/api/other_thing"},
		{"by method", RequestLogQuery{Method: "GET"}, 2, "/api/other_thing"},
		{"by status", RequestLogQuery{StatusCode: 200}, 2, "/api/admins/7"},
		{"by plugin", RequestLogQuery{PluginName: "admins"}, 3, "/api/admins/7"},
		{"path prefix escapes underscore", RequestLogQuery{PathPrefix: "/api/other_"}, 1, "/api/other_thing"},
		{"time window", RequestLogQuery{Since: now.Add(-150 * time.Minute), Until: now.Add(-30 * time.Minute)}, 2, "/api/admins/7"},
		{"ascending by duration", RequestLogQuery{Sort: "duration_ms"}, 4, "/api/other_thing"},
		{"unknown sort falls back to id", RequestLogQuery{Sort: "nope; DROP TABLE"}, 4, "/api/other_thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, total, err := s.ListRequestLogs(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListRequestLogs() error = %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(logs) == 0 {
				t.Fatal("no rows returned")
			}
			if logs[0].Path != tt.wantFirst {
				t.Errorf("first path = %q, want %q", logs[0].Path, tt.wantFirst)
			}
		})
	}
}

func TestListRequestLogs_Paging(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	for i := 0; i < 7; i++ {
		seedLogs(t, s, []*RequestLog{{Method: "GET", Path: "/api/admins", StatusCode: 200}})
	}

	logs, total, err := s.ListRequestLogs(context.Background(), RequestLogQuery{Limit: 5, Offset: 5})
	if err != nil {
		t.Fatalf("ListRequestLogs() error = %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(logs) != 2 {
		t.Errorf("page rows = %d, want 2", len(logs))
	}
	if logs[0].Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}
}

func TestDeleteRequestLogs(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	seedLogs(t, s, []*RequestLog{
		{Method: "GET", Path: "/a", StatusCode: 200},
		{Method: "GET", Path: "/b", StatusCode: 200},
		{Method: "GET", Path: "/c", StatusCode: 200},
	})

	n, err := s.DeleteRequestLogs(ctx, []int64{1, 3, 99})
	if err != nil {
		t.Fatalf("DeleteRequestLogs() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	logs, total, err := s.ListRequestLogs(ctx, RequestLogQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || logs[0].Path != "/b" {
		t.Errorf("remaining = %d, first = %+v", total, logs[0])
	}

	if n, err := s.DeleteRequestLogs(ctx, nil); err != nil || n != 0 {
		t.Errorf("DeleteRequestLogs(nil) = %d, %v", n, err)
	}
}

func TestGetPluginRequestCountAndErrorRate(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	seedLogs(t, s, []*RequestLog{
		{PluginName: "admins", Method: "GET", Path: "/api/admins", StatusCode: 200, Timestamp: now},
		{PluginName: "admins", Method: "POST", Path: "/api/admins", StatusCode: 400, Timestamp: now.Add(-time.Hour)},
		{PluginName: "admins", Method: "GET", Path: "/api/admins", StatusCode: 500, Timestamp: now.Add(-2 * time.Hour)},
		{PluginName: "admins", Method: "GET", Path: "/api/admins", StatusCode: 200, Timestamp: now.Add(-2 * time.Hour)},
		{PluginName: "admins", Method: "GET", Path: "/api/admins", StatusCode: 500, Timestamp: now.Add(-48 * time.Hour)},
	})

	count, err := s.GetPluginRequestCount("admins", yesterday)
	if err != nil {
		t.Fatalf("GetPluginRequestCount() error = %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}

	rate, err := s.GetPluginErrorRate("admins", yesterday)
	if err != nil {
		t.Fatalf("GetPluginErrorRate() error = %v", err)
	}
	if rate != 50.0 {
		t.Errorf("error rate = %.2f, want 50.00", rate)
	}

	rate, err = s.GetPluginErrorRate("nobody", yesterday)
	if err != nil || rate != 0 {
		t.Errorf("empty plugin rate = %v, %v", rate, err)
	}
}

func TestGetRequestLogStats(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seedLogs(t, s, []*RequestLog{
		{Method: "GET", Path: "/api/admins", StatusCode: 200, DurationMs: 10},
		{Method: "GET", Path: "/api/admins/1", StatusCode: 404, DurationMs: 20},
	})

	stats, err := s.GetRequestLogStats()
	if err != nil {
		t.Fatalf("GetRequestLogStats() error = %v", err)
	}
	if stats.TotalRequests != 2 || stats.TodayRequests != 2 || stats.ErrorRequests != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AvgDurationMs != 15 || stats.UniqueEndpoints != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func setupTestDB(t *testing.T) *Store {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return s
}
