// ABOUTME: Concurrency tests for the request log store.
// ABOUTME: Many goroutines log, list and delete at once against a file-backed database.

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func setupFileDB(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "concurrent.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConcurrentLogRequest(t *testing.T) {
	s := setupFileDB(t)

	numGoroutines := 20
	logsPerGoroutine := 25
	var wg sync.WaitGroup
	var errorCount int32

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				err := s.LogRequest(&RequestLog{
					PluginName: fmt.Sprintf("plugin-%d", id%3),
					Method:     []string{"GET", "POST", "PUT"}[j%3],
					Path:       fmt.Sprintf("/api/admins/%d", j),
					StatusCode: 200,
					DurationMs: j,
				})
				if err != nil {
					atomic.AddInt32(&errorCount, 1)
					t.Logf("LogRequest() error = %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if errorCount > 0 {
		t.Fatalf("%d writes failed", errorCount)
	}
	stats, err := s.GetRequestLogStats()
	if err != nil {
		t.Fatalf("GetRequestLogStats() error = %v", err)
	}
	if want := numGoroutines * logsPerGoroutine; stats.TotalRequests != want {
		t.Errorf("TotalRequests = %d, want %d", stats.TotalRequests, want)
	}
}

func TestConcurrentReadWriteDelete(t *testing.T) {
	s := setupFileDB(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := s.LogRequest(&RequestLog{
			Timestamp:  time.Now().Add(-time.Duration(i) * time.Minute),
			PluginName: "admins",
			Method:     "GET",
			Path:       "/api/admins",
			StatusCode: 200,
		}); err != nil {
			t.Fatalf("LogRequest() error = %v", err)
		}
	}

	var wg sync.WaitGroup
	var errorCount int32
	fail := func(err error) {
		if err != nil {
			atomic.AddInt32(&errorCount, 1)
			t.Logf("error = %v", err)
		}
	}

	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _, err := s.ListRequestLogs(ctx, RequestLogQuery{PluginName: "admins", Limit: 10, Offset: j})
				fail(err)
			}
		}()
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				fail(s.LogRequest(&RequestLog{PluginName: "admins", Method: "POST", Path: "/api/admins", StatusCode: 201 + id%2}))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			_, err := s.DeleteRequestLogs(ctx, []int64{int64(id + 1)})
			fail(err)
		}(i)
	}
	wg.Wait()

	if errorCount > 0 {
		t.Fatalf("%d operations failed", errorCount)
	}
	_, total, err := s.ListRequestLogs(ctx, RequestLogQuery{})
	if err != nil {
		t.Fatalf("ListRequestLogs() error = %v", err)
	}
	if want := 50 + 100 - 10; total != want {
		t.Errorf("total = %d, want %d", total, want)
	}
}
