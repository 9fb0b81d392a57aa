package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"html"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/evopanel/evopanel/session"
	"gorm.io/gorm"
)

const (
	// CSRF tokens carry 32 bytes of randomness and rotate after this
	// interval.
	csrfTokenBytes   = 32
	csrfRotateAfter  = 30 * time.Minute
	attemptRetention = 24 * time.Hour
)

// Service bundles the stateless security primitives with their
// dependencies made explicit: the database handle for login-attempt
// bookkeeping, a clock and a randomness source so token rotation and
// lockout windows are deterministic under test.
type Service struct {
	db               *gorm.DB
	maxLoginAttempts int
	lockoutWindow    time.Duration

	now  func() time.Time
	rand io.Reader
}

func NewService(db *gorm.DB, maxLoginAttempts int, lockoutWindow time.Duration) *Service {
	return &Service{
		db:               db,
		maxLoginAttempts: maxLoginAttempts,
		lockoutWindow:    lockoutWindow,
		now:              time.Now,
		rand:             rand.Reader,
	}
}

// WithClock fixes the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRand fixes the randomness source. Test hook.
func (s *Service) WithRand(r io.Reader) *Service {
	s.rand = r
	return s
}

// GenerateCSRFToken returns the session's anti-forgery token, creating
// it on first use and rotating it once it is older than 30 minutes.
func (s *Service) GenerateCSRFToken(sess *session.Session) (string, error) {
	token, issuedAt := sess.CSRFToken()
	if token != "" && s.now().Sub(issuedAt) <= csrfRotateAfter {
		return token, nil
	}

	buf := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", err
	}
	token = hex.EncodeToString(buf)
	sess.SetCSRFToken(token, s.now())
	return token, nil
}

// GenerateResetToken returns a high-entropy token for the password
// reset flow, hex-encoded like the CSRF token.
func (s *Service) GenerateResetToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ValidateCSRFToken compares in constant time. A missing session token
// or an empty candidate always fails.
func (s *Service) ValidateCSRFToken(sess *session.Session, candidate string) bool {
	token, _ := sess.CSRFToken()
	if token == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1
}

// SanitizeInput trims and HTML-escapes a scalar value. It guards
// templated output against reflected markup, not SQL: queries go
// through parameterized statements regardless.
func SanitizeInput(value string) string {
	return html.EscapeString(strings.TrimSpace(value))
}

// SanitizeAll applies SanitizeInput element-wise.
func SanitizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = SanitizeInput(v)
	}
	return out
}

// IsAlphanumeric reports whether every rune is a letter or digit.
// Empty input fails.
func IsAlphanumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
