package services

import (
	"log"
	"os"
	"time"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/storage"
)

// RateLimitResult is the outcome of a quota check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// RateLimiter derives an officer's remaining daily quota from the audit
// log: the quota state is never stored, only counted. The quota window
// resets at local midnight.
//
// failOpen controls what happens when the count itself fails: true (the
// default) lets the query through with Remaining=0, trading enforcement
// for availability; false rejects it.
type RateLimiter struct {
	store    storage.Store
	failOpen bool
}

// NewRateLimiter creates a rate limiter over the audit log.
func NewRateLimiter(store storage.Store, failOpen bool) *RateLimiter {
	return &RateLimiter{store: store, failOpen: failOpen}
}

// FailOpenFromEnv reads RATE_LIMIT_FAIL_OPEN; unset means fail-open.
func FailOpenFromEnv() bool {
	return os.Getenv("RATE_LIMIT_FAIL_OPEN") != "false"
}

// Check computes whether the officer may run one more query today. A
// non-positive limit falls back to the default daily limit.
func (r *RateLimiter) Check(officerID uint, limit int) *RateLimitResult {
	if limit <= 0 {
		limit = models.DefaultDailyLimit
	}

	now := time.Now()
	midnight := localMidnight(now)
	resetAt := midnight.AddDate(0, 0, 1)

	count, err := r.store.CountQueryLogsSince(officerID, midnight)
	if err != nil {
		log.Printf("⚠️  Rate limit count failed for officer %d (failOpen=%v): %v", officerID, r.failOpen, err)
		return &RateLimitResult{
			Allowed:   r.failOpen,
			Remaining: 0,
			Limit:     limit,
			ResetAt:   resetAt,
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:   int(count) < limit,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   resetAt,
	}
}

// localMidnight returns the start of t's day in its own location, the
// boundary at which daily quotas reset.
func localMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
