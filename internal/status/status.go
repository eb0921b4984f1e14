// Package status derives the canonical status of a test case from its feedback history.
//
// The canonical status is the result of the most recently created feedback across
// all testers. Entries created at the same instant are ordered by identity, so the
// higher ID wins. A case without feedback is untested.
package status

import (
	"fmt"
	"time"
)

// Status is the canonical state of a test case.
type Status string

const (
	Untested Status = "untested"
	Pass     Status = "pass"
	Fail     Status = "fail"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Untested, Pass, Fail:
		return true
	}
	return false
}

// Tested reports whether the status counts towards completion.
func (s Status) Tested() bool {
	return s == Pass || s == Fail
}

// Result is the outcome a tester records for a case.
type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
)

// Valid reports whether r is pass or fail.
func (r Result) Valid() bool {
	return r == ResultPass || r == ResultFail
}

// Status converts the result to the matching case status.
func (r Result) Status() Status {
	return Status(r)
}

// ParseResult validates a wire value.
func ParseResult(s string) (Result, error) {
	r := Result(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid result %q: must be %q or %q", s, ResultPass, ResultFail)
	}
	return r, nil
}

// Entry is the part of a feedback record that matters for derivation.
type Entry struct {
	ID        uint
	TesterID  uint
	Result    Result
	CreatedAt time.Time
}

// After reports whether e supersedes other: later creation time, then higher ID.
func (e Entry) After(other Entry) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.After(other.CreatedAt)
	}
	return e.ID > other.ID
}

// Latest returns the superseding entry of entries. The input order is irrelevant.
func Latest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if e.After(latest) {
			latest = e
		}
	}
	return latest, true
}

// Derive returns the canonical status for a case with the given feedback history.
func Derive(entries []Entry) Status {
	latest, ok := Latest(entries)
	if !ok {
		return Untested
	}
	return latest.Result.Status()
}

// LatestPerTester returns each tester's current entry.
func LatestPerTester(entries []Entry) map[uint]Entry {
	current := make(map[uint]Entry)
	for _, e := range entries {
		if prev, ok := current[e.TesterID]; !ok || e.After(prev) {
			current[e.TesterID] = e
		}
	}
	return current
}
