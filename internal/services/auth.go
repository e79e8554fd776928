package services

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/storage"
	"github.com/crms-ng/crms-backend/internal/utils"
)

// Authentication failures are deliberately indistinct: the handset never
// learns whether the phone number or the PIN was wrong.
var (
	ErrInvalidPINFormat = errors.New("PIN must be exactly 4 digits")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrPhoneLocked      = errors.New("phone locked out")
)

const (
	maxPINFailures  = 5
	lockoutDuration = 15 * time.Minute
	failureWindow   = 15 * time.Minute
)

// pinFailures tracks recent bad-PIN attempts for one phone number.
type pinFailures struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// AuthGate validates phone number + Quick PIN against the officer
// directory. It also keeps a short-lived per-phone lockout so a caller
// cannot brute-force a 4-digit PIN by redialling; the lockout is separate
// from the daily query quota.
type AuthGate struct {
	store    storage.Store
	mu       sync.Mutex
	failures map[string]*pinFailures
}

// NewAuthGate creates an authentication gate backed by the officer store.
func NewAuthGate(store storage.Store) *AuthGate {
	return &AuthGate{
		store:    store,
		failures: make(map[string]*pinFailures),
	}
}

// VerifyPIN authenticates a phone+PIN pair and returns the officer on
// success. Errors are one of ErrInvalidPINFormat, ErrPhoneLocked or
// ErrAuthFailed; anything downstream is folded into ErrAuthFailed.
func (g *AuthGate) VerifyPIN(phone, pin string) (*models.Officer, error) {
	if !utils.IsValidPIN(pin) {
		return nil, ErrInvalidPINFormat
	}

	if g.isLocked(phone) {
		return nil, ErrPhoneLocked
	}

	officer, err := g.store.GetOfficerByUSSDPhone(phone)
	if err != nil {
		g.recordFailure(phone)
		return nil, ErrAuthFailed
	}
	if !officer.IsActive {
		g.recordFailure(phone)
		return nil, ErrAuthFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(officer.PINHash), []byte(pin)); err != nil {
		g.recordFailure(phone)
		return nil, ErrAuthFailed
	}

	g.clearFailures(phone)
	return officer, nil
}

func (g *AuthGate) isLocked(phone string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.failures[phone]
	if !exists {
		return false
	}
	return time.Now().Before(entry.lockedUntil)
}

func (g *AuthGate) recordFailure(phone string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	entry, exists := g.failures[phone]
	if !exists || now.Sub(entry.windowStart) > failureWindow {
		entry = &pinFailures{windowStart: now}
		g.failures[phone] = entry
	}

	entry.count++
	if entry.count >= maxPINFailures {
		entry.lockedUntil = now.Add(lockoutDuration)
	}
}

func (g *AuthGate) clearFailures(phone string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, phone)
}
