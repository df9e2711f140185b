package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ExpiryMargin is the minimum remaining lifetime a cached token must have
// before it is considered usable. Tokens closer than this to expiry are
// refreshed so they do not die mid-run.
const ExpiryMargin = 500 * time.Second

var (
	// ErrMissingExpiry indicates a token representation without an "exp"
	// field. Callers must treat this as a refresh trigger, not a crash.
	ErrMissingExpiry = errors.New("auth: token has no expiry")

	// ErrExpired indicates the token is expired or inside the safety margin.
	ErrExpired = errors.New("auth: token expired")
)

// Token is a short-lived API credential with its expiry instant.
//
// Extra carries any additional fields found alongside the token in a cache
// file or auth response; they are persisted back verbatim but never
// interpreted.
type Token struct {
	Value  string
	Expiry int64 // unix seconds; 0 means absent
	Extra  map[string]json.RawMessage
}

// Validate reports whether the token is usable at the given instant.
//
// A token is usable only while expiry - now > ExpiryMargin; exactly on the
// margin counts as expired. Returns ErrMissingExpiry when no expiry is
// known, ErrExpired when the margin test fails, nil otherwise.
func (t *Token) Validate(now time.Time) error {
	if t.Expiry == 0 {
		return ErrMissingExpiry
	}
	remaining := t.Expiry - now.Unix()
	if remaining <= int64(ExpiryMargin/time.Second) {
		return fmt.Errorf("%w: %ds remaining", ErrExpired, remaining)
	}
	return nil
}
