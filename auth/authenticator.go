package auth

import (
	"crypto/hmac"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/agentguard/logging"
)

// Delimiter separates the fields of an encoded token.
const Delimiter = "|"

// DefaultTTL is the lifetime of tokens issued without an explicit TTL.
const DefaultTTL = time.Hour

// AlertPrefix starts every report of a failed token check.
const AlertPrefix = "SECURITY_ALERT"

// Alert formats the report for a subject whose token failed verification.
func Alert(subject string) string {
	return AlertPrefix + ": Authentication failed for " + subject
}

var (
	// ErrEmptySecret is returned when constructing an Authenticator without a key.
	ErrEmptySecret = errors.New("auth: secret key must not be empty")
	// ErrInvalidSubject is returned when a subject is empty or contains the delimiter.
	ErrInvalidSubject = errors.New("auth: invalid subject")
	// ErrMalformedToken is returned by ParseToken for undecodable input.
	ErrMalformedToken = errors.New("auth: malformed token")
)

// Token is a signed, time-bound identity assertion. It is immutable once issued.
type Token struct {
	Subject   string
	Expiry    int64 // absolute Unix seconds
	Signature string
}

// String returns the wire encoding subject|expiry|signature.
func (t Token) String() string {
	return t.Subject + Delimiter + strconv.FormatInt(t.Expiry, 10) + Delimiter + t.Signature
}

// ExpiresAt returns the expiry as a time.
func (t Token) ExpiresAt() time.Time { return time.Unix(t.Expiry, 0).UTC() }

// ParseToken splits an encoded token into its fields. It performs no
// cryptographic check; use Authenticator.VerifyToken for that.
func ParseToken(encoded string) (Token, error) {
	parts := strings.Split(encoded, Delimiter)
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedToken, len(parts))
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: expiry: %v", ErrMalformedToken, err)
	}
	return Token{Subject: parts[0], Expiry: expiry, Signature: parts[2]}, nil
}

// Options configures an Authenticator.
type Options struct {
	// MAC is the keyed hash used for tokens and signatures (default HMAC-SHA256).
	MAC MAC
	// Clock returns the current time (default time.Now).
	Clock func() time.Time
	// DefaultTTL applies to Issue (default one hour).
	DefaultTTL time.Duration
	// Logger receives verification outcomes (default no-op).
	Logger logging.Logger
}

// Authenticator issues and verifies tokens and message signatures. Apart from
// the secret fixed at construction it is stateless.
type Authenticator struct {
	key  []byte
	opts Options
}

// New creates an Authenticator keyed with secret.
func New(secret []byte, optFns ...func(o *Options)) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	opts := Options{
		MAC:        HMACSHA256{},
		Clock:      time.Now,
		DefaultTTL: DefaultTTL,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MAC == nil {
		opts.MAC = HMACSHA256{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Logger = logging.ForComponent(opts.Logger, "auth")

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Authenticator{key: key, opts: opts}, nil
}

// Algorithm returns the name of the configured MAC.
func (a *Authenticator) Algorithm() string { return a.opts.MAC.Name() }

// Issue issues a token for subject using the default TTL.
func (a *Authenticator) Issue(subject string) (Token, error) {
	return a.IssueToken(subject, a.opts.DefaultTTL)
}

// IssueToken issues a token for subject that expires ttl from now. The TTL is
// truncated to whole seconds; a TTL of zero or less yields a token that never
// verifies.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (Token, error) {
	if subject == "" || strings.Contains(subject, Delimiter) {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}

	expiry := a.opts.Clock().Unix() + int64(ttl/time.Second)
	expiryField := strconv.FormatInt(expiry, 10)

	return Token{
		Subject:   subject,
		Expiry:    expiry,
		Signature: a.sign(subject + Delimiter + expiryField),
	}, nil
}

// VerifyToken reports whether encoded is a well-formed token for
// expectedSubject, carries a valid signature and has not expired. It never
// returns an error. The identity, signature and expiry checks are all
// evaluated before the result is combined, so the signature comparison runs
// even for tokens that would fail on identity or expiry.
func (a *Authenticator) VerifyToken(encoded, expectedSubject string) bool {
	parts := strings.Split(encoded, Delimiter)
	if len(parts) != 3 {
		logging.Auth(a.opts.Logger, expectedSubject, false)
		return false
	}
	subject, expiryField, signature := parts[0], parts[1], parts[2]

	identityOK := subtle.ConstantTimeCompare([]byte(subject), []byte(expectedSubject)) == 1

	expected := a.sign(subject + Delimiter + expiryField)
	signatureOK := hmac.Equal([]byte(signature), []byte(expected))

	expiry, err := strconv.ParseInt(expiryField, 10, 64)
	freshOK := err == nil && a.opts.Clock().Unix() < expiry

	ok := identityOK && signatureOK && freshOK
	logging.Auth(a.opts.Logger, expectedSubject, ok)

	return ok
}

// SignMessage returns the hex MAC of content for transit integrity.
func (a *Authenticator) SignMessage(content string) string {
	return a.sign(content)
}

// VerifySignature reports whether signature matches content, in constant time.
func (a *Authenticator) VerifySignature(content, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(a.sign(content)))
}

func (a *Authenticator) sign(data string) string {
	return hexSum(a.opts.MAC, a.key, data)
}

// WithMAC selects the MAC algorithm.
func WithMAC(m MAC) func(o *Options) {
	return func(o *Options) { o.MAC = m }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) func(o *Options) {
	return func(o *Options) { o.Clock = clock }
}

// WithDefaultTTL sets the TTL used by Issue.
func WithDefaultTTL(ttl time.Duration) func(o *Options) {
	return func(o *Options) { o.DefaultTTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}
