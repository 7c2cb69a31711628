// Package billing applies signed subscription webhooks to user tiers.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	secretPrefix     = "whsec_"
	defaultTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders   = errors.New("missing webhook headers")
	ErrInvalidTimestamp = errors.New("webhook timestamp outside tolerance")
	ErrInvalidSignature = errors.New("no matching webhook signature")
)

// Verifier checks Standard Webhooks signatures: HMAC-SHA256 over
// "<id>.<timestamp>.<body>", sent as space-separated "v1,<base64>" entries.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTolerance sets how far the timestamp may drift from now.
func WithTolerance(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.tolerance = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier. A "whsec_" prefixed secret is base64 decoded;
// anything else is used as raw key bytes.
func NewVerifier(secret string, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret is empty")
	}
	key := []byte(secret)
	if s, ok := strings.CutPrefix(secret, secretPrefix); ok {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode webhook secret: %w", err)
		}
		key = decoded
	}

	v := &Verifier{key: key, tolerance: defaultTolerance, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks the headers against body.
func (v *Verifier) Verify(id, timestamp, signatures string, body []byte) error {
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimestamp, timestamp)
	}
	drift := v.now().Sub(time.Unix(sec, 0))
	if drift > v.tolerance || drift < -v.tolerance {
		return fmt.Errorf("%w: drift %s", ErrInvalidTimestamp, drift.Round(time.Second))
	}

	expected := v.Sign(id, sec, body)
	for _, sig := range strings.Fields(signatures) {
		version, value, ok := strings.Cut(sig, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(value), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign returns the base64 v1 signature for a message.
func (v *Verifier) Sign(id string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%d.", id, timestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
