// Package types defines the shared domain types for the weekly report agent.
package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// RunKey identifies one weekly report cycle, e.g. "2024-W44".
// The same key is shared by the draft and final phases of a cycle.
type RunKey string

var runKeyPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// CurrentRunKey derives the run key for the ISO week containing now.
func CurrentRunKey(now time.Time) RunKey {
	year, week := now.ISOWeek()
	return RunKey(fmt.Sprintf("%d-W%02d", year, week))
}

// ParseRunKey validates a run key string and returns it as a RunKey.
func ParseRunKey(s string) (RunKey, error) {
	m := runKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("invalid run key %q: expected format YYYY-Www (e.g. 2024-W44)", s)
	}
	week, err := strconv.Atoi(m[2])
	if err != nil || week < 1 || week > 53 {
		return "", fmt.Errorf("invalid run key %q: week must be between 01 and 53", s)
	}
	return RunKey(s), nil
}

// Year returns the ISO year component of the run key.
func (k RunKey) Year() int {
	m := runKeyPattern.FindStringSubmatch(string(k))
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

// Week returns the ISO week component of the run key.
func (k RunKey) Week() int {
	m := runKeyPattern.FindStringSubmatch(string(k))
	if m == nil {
		return 0
	}
	w, _ := strconv.Atoi(m[2])
	return w
}

func (k RunKey) String() string {
	return string(k)
}
