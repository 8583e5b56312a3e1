// Package otp implements the one-time-password engine gating the signup and
// login flows. Codes are short-lived, single-use, and bound to a phone
// number; at most one live code exists per number.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/kirana-labs/kiranapos/internal/sms"
	"github.com/kirana-labs/kiranapos/pkg/kv"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 5 * time.Minute

// Record is one live code bound to a phone number.
type Record struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
}

// Engine issues and verifies codes. Issue and Verify for the same phone
// number serialize through one mutex, so a verify's read cannot race a
// concurrent issue's overwrite.
type Engine struct {
	mu     sync.Mutex
	codes  *kv.Store[Record]
	sender sms.Sender
	logger *slog.Logger
	ttl    time.Duration
}

// New creates an Engine storing codes in the given store. A zero ttl uses
// DefaultTTL; a nil sender skips dispatch.
func New(codes *kv.Store[Record], sender sms.Sender, logger *slog.Logger, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{
		codes:  codes,
		sender: sender,
		logger: logger,
		ttl:    ttl,
	}
}

// Issue generates a random 6-digit code for the phone number, overwriting any
// live code, and dispatches it via the SMS collaborator. The stored code
// survives a dispatch failure so the caller can retry delivery without
// invalidating an already-displayed prompt.
//
// Phone-number format validation is a caller concern; the engine treats the
// number as an opaque key.
func (e *Engine) Issue(ctx context.Context, phoneNumber string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}

	e.mu.Lock()
	e.codes.SetTTL(phoneNumber, Record{PhoneNumber: phoneNumber, Code: code}, e.ttl)
	e.mu.Unlock()

	if e.sender != nil {
		body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(e.ttl.Minutes()))
		if err := e.sender.Send(ctx, phoneNumber, body); err != nil {
			e.logger.Error("otp dispatch failed", "to", phoneNumber, "err", err)
		}
	}

	return code, nil
}

// Verify checks a code for a phone number. It returns false when no code was
// issued, the code expired (the stale record is deleted), or the code does
// not match. A successful match deletes the record so the code is single-use.
//
// All failure modes collapse to false; callers cannot tell an expired code
// from a wrong one or from a number that was never issued a code.
func (e *Engine) Verify(phoneNumber, code string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.codes.Get(phoneNumber) // expired entries are evicted here
	if !ok {
		return false
	}
	if rec.Code != code {
		return false
	}
	e.codes.Delete(phoneNumber)
	return true
}

// generateCode draws a uniform 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
