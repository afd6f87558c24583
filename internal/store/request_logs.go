// ABOUTME: Request log storage operations.
// ABOUTME: Inserts API request logs and serves the logs list and dashboard queries.

package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RequestLog represents an HTTP request log entry
type RequestLog struct {
	ID           int64
	Timestamp    time.Time
	PluginName   string
	Method       string
	Path         string
	StatusCode   int
	DurationMs   int
	UserID       string
	IPAddress    string
	UserAgent    string
	Error        string
	RequestBody  string
	ResponseBody string
}

// LogRequest inserts a request log entry. A zero Timestamp means now.
func (s *Store) LogRequest(log *RequestLog) error {
	ts := log.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO request_logs (timestamp, plugin_name, method, path, status_code, duration_ms, user_id, ip_address, user_agent, error, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, FormatTime(ts), log.PluginName, log.Method, log.Path, log.StatusCode, log.DurationMs, log.UserID, log.IPAddress, log.UserAgent, log.Error, log.RequestBody, log.ResponseBody)
	return err
}

// RequestLogQuery filters the logs list. Zero values match everything.
type RequestLogQuery struct {
	ID         int64
	PluginName string
	Method     string
	PathPrefix string
	StatusCode int
	Since      time.Time
	Until      time.Time
	Sort       string
	Desc       bool
	Limit      int
	Offset     int
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests   int
	TodayRequests   int
	ErrorRequests   int
	AvgDurationMs   int
	UniqueEndpoints int
}

var requestLogSorts = map[string]bool{
	"id": true, "timestamp": true, "status_code": true, "duration_ms": true, "path": true, "method": true,
}

func (q RequestLogQuery) where() sq.And {
	and := sq.And{}
	if q.ID > 0 {
		and = append(and, sq.Eq{"id": q.ID})
	}
	if q.PluginName != "" {
		and = append(and, sq.Eq{"plugin_name": q.PluginName})
	}
	if q.Method != "" {
		and = append(and, sq.Eq{"method": q.Method})
	}
	if q.PathPrefix != "" {
		and = append(and, HasPrefix("path", q.PathPrefix))
	}
	if q.StatusCode > 0 {
		and = append(and, sq.Eq{"status_code": q.StatusCode})
	}
	if !q.Since.IsZero() {
		and = append(and, sq.GtOrEq{"timestamp": FormatTime(q.Since)})
	}
	if !q.Until.IsZero() {
		and = append(and, sq.LtOrEq{"timestamp": FormatTime(q.Until)})
	}
	return and
}

// ListRequestLogs returns one page of logs plus the total that match q.
func (s *Store) ListRequestLogs(ctx context.Context, q RequestLogQuery) ([]*RequestLog, int, error) {
	where := q.where()

	var total int
	countSQL, countArgs, err := sq.Select("COUNT(*)").From("request_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count request logs: %w", err)
	}

	order := "id DESC"
	if requestLogSorts[q.Sort] {
		order = q.Sort
		if q.Desc {
			order += " DESC"
		}
	}
	sel := sq.Select(
		"id", "timestamp", "COALESCE(plugin_name, '')", "method", "path",
		"COALESCE(status_code, 0)", "COALESCE(duration_ms, 0)",
		"COALESCE(user_id, '')", "COALESCE(ip_address, '')", "COALESCE(user_agent, '')", "COALESCE(error, '')",
		"COALESCE(request_body, '')", "COALESCE(response_body, '')",
	).From("request_logs").Where(where).OrderBy(order)
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit)).Offset(uint64(max(q.Offset, 0)))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, err
	}

	logs, err := s.scanRequestLogs(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// DeleteRequestLogs removes the logs with the given ids and reports how many went.
func (s *Store) DeleteRequestLogs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sq.Delete("request_logs").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete request logs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) scanRequestLogs(ctx context.Context, query string, args ...any) ([]*RequestLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		var timestamp string
		if err := rows.Scan(&log.ID, &timestamp, &log.PluginName, &log.Method, &log.Path, &log.StatusCode,
			&log.DurationMs, &log.UserID, &log.IPAddress, &log.UserAgent, &log.Error,
			&log.RequestBody, &log.ResponseBody); err != nil {
			return nil, err
		}
		log.Timestamp = parseTimestamp(timestamp)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// parseTimestamp accepts the text layouts SQLite and the driver produce.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{TimeFormat, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// GetRequestLogStats returns aggregate statistics for the dashboard
func (s *Store) GetRequestLogStats() (*RequestLogStats, error) {
	stats := &RequestLogStats{}
	today := time.Now().UTC().Format("2006-01-02")

	queries := []struct {
		sql  string
		args []any
		dst  *int
	}{
		{"SELECT COUNT(*) FROM request_logs", nil, &stats.TotalRequests},
		{"SELECT COUNT(*) FROM request_logs WHERE date(timestamp) = ?", []any{today}, &stats.TodayRequests},
		{"SELECT COUNT(*) FROM request_logs WHERE status_code >= 400", nil, &stats.ErrorRequests},
		{"SELECT CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER) FROM request_logs", nil, &stats.AvgDurationMs},
		{"SELECT COUNT(DISTINCT path) FROM request_logs", nil, &stats.UniqueEndpoints},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.sql, q.args...).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("request log stats: %w", err)
		}
	}
	return stats, nil
}

// GetPluginRequestCount returns the number of requests for a plugin since a given time
func (s *Store) GetPluginRequestCount(pluginName string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM request_logs
		WHERE plugin_name = ? AND timestamp >= ?
	`, pluginName, FormatTime(since)).Scan(&count)
	return count, err
}

// GetPluginErrorRate returns the error rate percentage for a plugin since a given time
func (s *Store) GetPluginErrorRate(pluginName string, since time.Time) (float64, error) {
	var totalCount, errorCount int
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0)
		FROM request_logs
		WHERE plugin_name = ? AND timestamp >= ?
	`, pluginName, FormatTime(since)).Scan(&totalCount, &errorCount)
	if err != nil {
		return 0, err
	}
	if totalCount == 0 {
		return 0, nil
	}
	return (float64(errorCount) / float64(totalCount)) * 100.0, nil
}
