package core

import (
	"fmt"
	"strings"
	"time"
)

// TimeWindow is a relative time range ending now that restricts a request
// to recent documents.
type TimeWindow string

const (
	TimeWindowAll TimeWindow = "all"
	TimeWindow1h  TimeWindow = "1h"
	TimeWindow1d  TimeWindow = "1d"
	TimeWindow7d  TimeWindow = "7d"
	TimeWindow30d TimeWindow = "30d"
)

var ValidTimeWindows = []TimeWindow{
	TimeWindow1h,
	TimeWindow1d,
	TimeWindow7d,
	TimeWindow30d,
	TimeWindowAll,
}

// Duration returns the window length; zero for TimeWindowAll.
func (tw TimeWindow) Duration() time.Duration {
	switch tw {
	case TimeWindow1h:
		return time.Hour
	case TimeWindow1d:
		return 24 * time.Hour
	case TimeWindow7d:
		return 7 * 24 * time.Hour
	case TimeWindow30d:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

func (tw TimeWindow) Label() string {
	switch tw {
	case TimeWindow1h:
		return "Last hour"
	case TimeWindow1d:
		return "Last 24 hours"
	case TimeWindow7d:
		return "Last 7 days"
	case TimeWindow30d:
		return "Last 30 days"
	default:
		return "All time"
	}
}

// Bounds returns the half-open range [now-window, now). ok is false when
// the window does not restrict time.
func (tw TimeWindow) Bounds(now time.Time) (from, to time.Time, ok bool) {
	d := tw.Duration()
	if d == 0 {
		return time.Time{}, time.Time{}, false
	}
	return now.Add(-d), now, true
}

// ParseTimeWindow accepts the window names case-insensitively. An empty
// string means TimeWindowAll.
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TimeWindowAll, nil
	}
	for _, tw := range ValidTimeWindows {
		if string(tw) == s {
			return tw, nil
		}
	}
	return "", fmt.Errorf("unknown time window %q", s)
}

// NextTimeWindow returns the next time window in the cycle.
func NextTimeWindow(current TimeWindow) TimeWindow {
	for i, tw := range ValidTimeWindows {
		if tw == current {
			return ValidTimeWindows[(i+1)%len(ValidTimeWindows)]
		}
	}
	return ValidTimeWindows[0]
}
