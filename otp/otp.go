// Package otp implements the HOTP (RFC 4226) and TOTP (RFC 6238) one-time
// password algorithms and the credential model shared by the otpauth URI and
// migration batch codecs.
package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes the two credential variants.
type Kind string

const (
	KindHOTP Kind = "hotp" // counter-based (RFC 4226)
	KindTOTP Kind = "totp" // time-based (RFC 6238)
)

// Errors reported when constructing a credential.
var (
	// ErrEmptySecret is reported when no secret is provided at all.
	ErrEmptySecret = errors.New("secret is empty")

	// ErrShortSecret is reported when the supplied secret is shorter than
	// 128 bits (R6 of RFC 4226 Section 4). The requirement applies to the
	// representation supplied: 16 raw bytes, or 16 base32 characters.
	ErrShortSecret = errors.New("secret must be at least 128 bits")
)

// Errors reported when computing a code. Construction is deliberately
// lenient about the algorithm name and digit count; these surface only when
// a code is requested.
var (
	ErrBadAlgorithm = errors.New(`algorithm must be "sha1", "sha256", or "sha512"`)
	ErrBadDigits    = errors.New("digits must be between 6 and 8")
)

const minSecretLen = 16

// A SecretValue is key material for a credential: either the raw key bytes,
// or its base32 encoding (decoded case-insensitively, padding optional).
type SecretValue interface{ string | []byte }

// secretKey validates a supplied secret and returns the raw key bytes.
func secretKey[T SecretValue](secret T) ([]byte, error) {
	switch s := any(secret).(type) {
	case string:
		if s == "" {
			return nil, ErrEmptySecret
		} else if len(s) < minSecretLen {
			return nil, ErrShortSecret
		}
		return ParseSecret(s)
	case []byte:
		if len(s) == 0 {
			return nil, ErrEmptySecret
		} else if len(s) < minSecretLen {
			return nil, ErrShortSecret
		}
		return s, nil
	}
	panic("unreachable")
}

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// ParseSecret decodes a base32-encoded secret. Lower-case input is accepted,
// and trailing "=" padding may be included or omitted.
func ParseSecret(s string) ([]byte, error) {
	key, err := b32.DecodeString(strings.ToUpper(strings.TrimRight(s, "=")))
	if err != nil {
		return nil, fmt.Errorf("invalid base32 secret: %w", err)
	}
	return key, nil
}

// FormatSecret encodes raw key bytes as base32 without padding, the form
// ParseSecret accepts.
func FormatSecret(key []byte) string { return b32.EncodeToString(key) }

// A Field is one entry of a credential's ordered display mapping.
type Field struct {
	Name, Value string
}

// Options are optional settings for a new credential. A nil *Options is
// ready to use and provides defaults: SHA1, 6 digits, a zero counter, and a
// 30-second period.
type Options struct {
	// Algorithm names the HMAC digest ("sha1", "sha256", "sha512").
	// Unrecognized names are stored as given and rejected only when a code
	// is computed.
	Algorithm string

	// Digits is the length of generated codes. Values outside [6, 8] are
	// stored as given and rejected only when a code is computed.
	Digits int

	// Counter is the initial counter value (HOTP only).
	Counter uint64

	// Period is the time step in seconds (TOTP only); it must not be
	// negative. Zero means the default of 30.
	Period int

	// Info are additional free-form entries (label, issuer, and so on),
	// applied in order. Entries with reserved names are rejected.
	Info []Field
}

func (o *Options) algorithm() string {
	if o.Algorithm == "" {
		return "sha1"
	}
	return o.Algorithm
}

func (o *Options) digits() int {
	if o.Digits == 0 {
		return 6
	}
	return o.Digits
}

// A Credential is a single OTP credential of either variant. The concrete
// types are *HOTP and *TOTP.
type Credential interface {
	// Kind reports which variant this credential is.
	Kind() Kind

	// Code computes the current code. For HOTP this advances the stored
	// counter as a side effect; see the HOTP.Code documentation.
	Code() (string, error)

	// Fields returns the ordered display mapping for the credential.
	Fields() []Field

	// Info returns the additional-info mapping.
	Info() *Info

	// Key returns the raw key material.
	Key() []byte

	// Algorithm returns the digest algorithm name as given at construction.
	Algorithm() string

	// Digits returns the code length as given at construction.
	Digits() int
}

// base carries the fields common to both variants.
type base struct {
	key       []byte
	algorithm string
	digits    int
	info      *Info
}

func newBase[T SecretValue](secret T, opts *Options, reserved []string) (base, error) {
	if opts == nil {
		opts = new(Options)
	}
	key, err := secretKey(secret)
	if err != nil {
		return base{}, err
	}
	info := newInfo(reserved)
	for _, f := range opts.Info {
		if err := info.Set(f.Name, f.Value); err != nil {
			return base{}, err
		}
	}
	return base{
		key:       key,
		algorithm: opts.algorithm(),
		digits:    opts.digits(),
		info:      info,
	}, nil
}

func (b base) Key() []byte       { return b.key }
func (b base) Algorithm() string { return b.algorithm }
func (b base) Digits() int       { return b.digits }
func (b base) Info() *Info       { return b.info }

// Secret returns the base32 encoding of the key, without padding.
func (b base) Secret() string { return FormatSecret(b.key) }

func (b base) baseFields() []Field {
	return []Field{
		{"secret", b.Secret()},
		{"algorithm", strings.ToUpper(b.algorithm)},
		{"digits", strconv.Itoa(b.digits)},
	}
}

// An HOTP is a counter-based credential. Its counter advances by one each
// time Code is called; an HOTP value must not be shared across goroutines
// without external synchronization.
type HOTP struct {
	base
	counter uint64
}

// NewHOTP constructs a counter-based credential from the given secret.
func NewHOTP[T SecretValue](secret T, opts *Options) (*HOTP, error) {
	b, err := newBase(secret, opts, []string{"secret", "algorithm", "digits", "counter"})
	if err != nil {
		return nil, err
	}
	h := &HOTP{base: b}
	if opts != nil {
		h.counter = opts.Counter
	}
	return h, nil
}

func (h *HOTP) Kind() Kind { return KindHOTP }

// Counter reports the current counter value without advancing it.
func (h *HOTP) Counter() uint64 { return h.counter }

// SetCounter replaces the stored counter value.
func (h *HOTP) SetCounter(c uint64) { h.counter = c }

// Code computes the code for the current counter value and then advances the
// counter by one. Use CodeAt to compute a code without the side effect.
func (h *HOTP) Code() (string, error) {
	code, err := h.CodeAt(h.counter)
	if err != nil {
		return "", err
	}
	h.counter++
	return code, nil
}

// CodeAt computes the code for the specified counter value. The stored
// counter is not consulted or modified.
func (h *HOTP) CodeAt(counter uint64) (string, error) {
	return hotpCode(h.key, counter, h.algorithm, h.digits)
}

// Fields returns the display mapping: secret, algorithm, digits, counter,
// then the additional-info entries in insertion order.
func (h *HOTP) Fields() []Field {
	fs := append(h.baseFields(), Field{"counter", strconv.FormatUint(h.counter, 10)})
	return append(fs, h.info.Fields()...)
}

// A TOTP is a time-based credential. It has no mutable state and is safe for
// concurrent readers.
type TOTP struct {
	base
	period int
}

// NewTOTP constructs a time-based credential from the given secret.
func NewTOTP[T SecretValue](secret T, opts *Options) (*TOTP, error) {
	b, err := newBase(secret, opts, []string{"secret", "algorithm", "digits", "period"})
	if err != nil {
		return nil, err
	}
	period := 30
	if opts != nil && opts.Period != 0 {
		if opts.Period < 0 {
			return nil, fmt.Errorf("period must be positive (got %d)", opts.Period)
		}
		period = opts.Period
	}
	return &TOTP{base: b, period: period}, nil
}

func (t *TOTP) Kind() Kind { return KindTOTP }

// Period reports the time step in seconds.
func (t *TOTP) Period() int { return t.period }

// Code computes the code for the current wall-clock time.
func (t *TOTP) Code() (string, error) { return t.CodeAt(time.Now()) }

// CodeAt computes the code for the time step containing at.
func (t *TOTP) CodeAt(at time.Time) (string, error) {
	return hotpCode(t.key, uint64(at.Unix()/int64(t.period)), t.algorithm, t.digits)
}

// Fields returns the display mapping: secret, algorithm, digits, period,
// then the additional-info entries in insertion order.
func (t *TOTP) Fields() []Field {
	fs := append(t.baseFields(), Field{"period", strconv.Itoa(t.period)})
	return append(fs, t.info.Fields()...)
}

// KnownAlgorithm reports whether name is a digest algorithm the code engine
// supports. The comparison is case-insensitive.
func KnownAlgorithm(name string) bool {
	_, ok := hashFor(name)
	return ok
}

func hashFor(algorithm string) (func() hash.Hash, bool) {
	switch strings.ToLower(algorithm) {
	case "sha1":
		return sha1.New, true
	case "sha256":
		return sha256.New, true
	case "sha512":
		return sha512.New, true
	}
	return nil, false
}

// hotpCode is the RFC 4226 code computation: HMAC over the 8-byte big-endian
// counter, dynamic truncation to 31 bits, reduced modulo 10^digits.
func hotpCode(key []byte, counter uint64, algorithm string, digits int) (string, error) {
	newHash, ok := hashFor(algorithm)
	if !ok {
		return "", fmt.Errorf("%w (got %q)", ErrBadAlgorithm, algorithm)
	}
	if digits < 6 || digits > 8 {
		return "", fmt.Errorf("%w (got %d)", ErrBadDigits, digits)
	}
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(newHash, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	v := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", digits, v%pow10(digits)), nil
}

func pow10(n int) uint32 {
	p := uint32(1)
	for ; n > 0; n-- {
		p *= 10
	}
	return p
}
