package network

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxHistory bounds how many status entries a schedule keeps.
const DefaultMaxHistory = 50

// AdminStatusType is the operator-controlled intended state.
type AdminStatusType string

// Admin status values.
const (
	AdminStatusUnspecified  AdminStatusType = "Unspecified"
	AdminStatusPlanned      AdminStatusType = "Planned"
	AdminStatusInDeployment AdminStatusType = "InDeployment"
	AdminStatusOperational  AdminStatusType = "Operational"
	AdminStatusInternalUse  AdminStatusType = "InternalUse"
	AdminStatusOutOfService AdminStatusType = "OutOfService"
	AdminStatusBlocked      AdminStatusType = "Blocked"
	AdminStatusDeleted      AdminStatusType = "Deleted"
)

var adminStatusValues = []AdminStatusType{
	AdminStatusUnspecified, AdminStatusPlanned, AdminStatusInDeployment, AdminStatusOperational,
	AdminStatusInternalUse, AdminStatusOutOfService, AdminStatusBlocked, AdminStatusDeleted,
}

// ParseAdminStatus parses an admin status value case-insensitively.
func ParseAdminStatus(text string) (AdminStatusType, error) {
	for _, v := range adminStatusValues {
		if strings.EqualFold(string(v), strings.TrimSpace(text)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("network: unknown admin status %q", text)
}

// StatusType is the observed operational state.
type StatusType string

// Status values.
const (
	StatusUnspecified  StatusType = "Unspecified"
	StatusAvailable    StatusType = "Available"
	StatusReserved     StatusType = "Reserved"
	StatusCharging     StatusType = "Charging"
	StatusOutOfService StatusType = "OutOfService"
	StatusFaulted      StatusType = "Faulted"
	StatusOffline      StatusType = "Offline"
	StatusBlocked      StatusType = "Blocked"
)

var statusValues = []StatusType{
	StatusUnspecified, StatusAvailable, StatusReserved, StatusCharging,
	StatusOutOfService, StatusFaulted, StatusOffline, StatusBlocked,
}

// ParseStatus parses a status value case-insensitively.
func ParseStatus(text string) (StatusType, error) {
	for _, v := range statusValues {
		if strings.EqualFold(string(v), strings.TrimSpace(text)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("network: unknown status %q", text)
}

// Timestamped is a value valid since Timestamp.
type Timestamped[T any] struct {
	Timestamp time.Time
	Value     T
}

// Schedule keeps the current value and a bounded, timestamp-ordered history.
type Schedule[T comparable] struct {
	mu         sync.RWMutex
	entries    []Timestamped[T] // newest first
	maxHistory int
}

// NewSchedule creates a schedule holding an initial value.
func NewSchedule[T comparable](initial T, at time.Time, maxHistory int) *Schedule[T] {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Schedule[T]{
		entries:    []Timestamped[T]{{Timestamp: at.UTC(), Value: initial}},
		maxHistory: maxHistory,
	}
}

// Current returns the newest entry.
func (s *Schedule[T]) Current() Timestamped[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[0]
}

// History returns up to size entries, newest first. Entries older than since
// are dropped when since is non-zero.
func (s *Schedule[T]) History(size int, since time.Time) []Timestamped[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Timestamped[T], 0, len(s.entries))
	for _, e := range s.entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			break
		}
		out = append(out, e)
		if size > 0 && len(out) == size {
			break
		}
	}
	return out
}

// Set records a new value at the given time.
func (s *Schedule[T]) Set(value T, at time.Time) {
	s.Insert([]Timestamped[T]{{Timestamp: at, Value: value}})
}

// Insert merges entries into the history, keeping it ordered by timestamp.
// An entry with the same timestamp as an existing one replaces it.
func (s *Schedule[T]) Insert(entries []Timestamped[T]) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		e.Timestamp = e.Timestamp.UTC()
		replaced := false
		for i := range s.entries {
			if s.entries[i].Timestamp.Equal(e.Timestamp) {
				s.entries[i].Value = e.Value
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries = append(s.entries, e)
		}
	}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Timestamp.After(s.entries[j].Timestamp)
	})
	if len(s.entries) > s.maxHistory {
		s.entries = s.entries[:s.maxHistory]
	}
}
