package repository

import (
	"fmt"
	"strconv"
	"time"
)

// outcomeJoin attaches the coalesced outcome of each request. Outcomes are
// collapsed per request_id so a duplicated outcome row never fans out a
// request, and a success on any of them wins.
const outcomeJoin = `
	LEFT JOIN (
		SELECT request_id, MAX(CASE WHEN success THEN 1 ELSE 0 END) AS success
		FROM channel_stats
		GROUP BY request_id
	) c ON c.request_id = r.request_id`

// boolToInt converts a boolean to the 0/1 form of the coalesced outcome flag.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// successRate is successes/requests as a 0-1 fraction, 0 for an empty group.
func successRate(successes, requests int64) float64 {
	if requests <= 0 {
		return 0
	}
	return float64(successes) / float64(requests)
}

// parseFlexibleTime tries multiple time formats commonly used by SQLite.
func parseFlexibleTime(s string) time.Time {
	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05-07:00",
		time.RFC3339Nano,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

// toTime normalizes a timestamp column value across drivers: pgx yields
// time.Time, SQLite yields text or unix seconds depending on how the gateway
// wrote the row.
func toTime(v any) (time.Time, error) {
	switch ts := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return ts, nil
	case string:
		return parseFlexibleTime(ts), nil
	case []byte:
		return parseFlexibleTime(string(ts)), nil
	case int64:
		return time.Unix(ts, 0).UTC(), nil
	case float64:
		return time.Unix(int64(ts), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
