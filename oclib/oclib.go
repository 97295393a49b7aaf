// Package oclib is a support library for the otpcli tool.
package oclib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/creachadair/getpass"
	"github.com/jacky9813/otp-cli/migration"
	"github.com/jacky9813/otp-cli/otp"
	"github.com/jacky9813/otp-cli/otpauth"
	"github.com/jacky9813/otp-cli/qrc"
)

// ErrNotOTPData is reported for symbol payloads that are not OTP URIs at
// all, such as binary QR content or unrelated links.
var ErrNotOTPData = errors.New("not OTP data")

// DecodeSymbol parses one decoded symbol payload into its credentials,
// dispatching on the URI scheme: an otpauth URI yields a single credential,
// a migration URI yields the whole batch in export order.
func DecodeSymbol(payload string) ([]otp.Credential, error) {
	if !utf8.ValidString(payload) {
		return nil, ErrNotOTPData
	}
	scheme, _, ok := strings.Cut(payload, "://")
	if !ok {
		return nil, ErrNotOTPData
	}
	switch scheme {
	case migration.Scheme:
		b, err := migration.Decode(payload)
		if err != nil {
			return nil, err
		}
		return b.Credentials, nil
	case otpauth.Scheme:
		c, err := otpauth.Decode(payload)
		if err != nil {
			return nil, err
		}
		return []otp.Credential{c}, nil
	}
	return nil, fmt.Errorf("%w (scheme %q)", ErrNotOTPData, scheme)
}

// A Found pairs a parsed credential with the image file it came from.
type Found struct {
	Path       string
	Credential otp.Credential
}

// ReadImages scans each image file for QR symbols and parses the OTP
// credentials they carry. Per-file and per-symbol failures are passed to
// report and skipped; the scan always continues across the remaining
// inputs. The caller decides whether an empty result is fatal.
func ReadImages(paths []string, report func(path string, err error)) []Found {
	if report == nil {
		report = func(string, error) {}
	}
	var out []Found
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			report(path, err)
			continue
		}
		syms, err := qrc.Scan(f)
		f.Close()
		if err != nil {
			report(path, err)
			continue
		}
		for _, sym := range syms {
			creds, err := DecodeSymbol(sym.Text)
			if err != nil {
				report(path, err)
				continue
			}
			for _, c := range creds {
				out = append(out, Found{Path: path, Credential: c})
			}
		}
	}
	return out
}

var counterSpecRE = regexp.MustCompile(`^([+-]?)(\d+)$`)

// ParseCounterSpec parses a counter modifier of the form [+|-]N. A bare
// integer sets the counter absolutely; a leading sign adjusts it relative to
// the current value. The returned modifier applies only to HOTP credentials
// and leaves others untouched. An empty spec yields a no-op.
func ParseCounterSpec(spec string) (func(otp.Credential), error) {
	if spec == "" {
		return func(otp.Credential) {}, nil
	}
	m := counterSpecRE.FindStringSubmatch(spec)
	if m == nil {
		return nil, fmt.Errorf("invalid counter spec %q (want [+|-]N)", spec)
	}
	n, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid counter spec %q: %w", spec, err)
	}
	return func(c otp.Credential) {
		h, ok := c.(*otp.HOTP)
		if !ok {
			return
		}
		switch m[1] {
		case "+":
			h.SetCounter(h.Counter() + n)
		case "-":
			h.SetCounter(h.Counter() - n)
		default:
			h.SetCounter(n)
		}
	}, nil
}

// PromptSecret reads a base32 secret at a no-echo terminal prompt and
// returns the text as typed, trimmed of surrounding space. The base32 form
// is kept so that length validation applies to the representation the user
// supplied.
func PromptSecret() (string, error) {
	s, err := getpass.Prompt("Base32 secret: ")
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// ReadSecret reads raw key bytes for a new credential from the file at path,
// or from standard input when path is "-".
func ReadSecret(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read secret from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return data, nil
}
