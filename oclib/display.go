package oclib

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jacky9813/otp-cli/otp"
	"github.com/jacky9813/otp-cli/otpauth"
)

// DisplayOptions control the rendering of a credential by WriteInfo.
type DisplayOptions struct {
	// ShowSecret, when true, prints the secret and the full otpauth URI
	// instead of masking them with stars.
	ShowSecret bool

	// Now supplies the clock for TOTP rows; nil means time.Now.
	Now func() time.Time
}

func (o *DisplayOptions) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *DisplayOptions) showSecret() bool { return o != nil && o.ShowSecret }

const fieldWidth = 20

// WriteField writes one right-aligned "name: value" display row to w.
func WriteField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "%*s: %s\n", fieldWidth, name, value)
}

// WriteInfo writes a human-readable description of c to w, one field per
// line: the credential's own fields, its otpauth URI, the current time, and
// the current code.
// Settings the code engine would reject are annotated rather than omitted,
// so the user can see what a scanned credential actually contains.
func WriteInfo(w io.Writer, c otp.Credential, opts *DisplayOptions) {
	WriteField(w, "Type", strings.ToUpper(string(c.Kind())))
	for _, f := range c.Fields() {
		value := f.Value
		switch f.Name {
		case "secret":
			if !opts.showSecret() {
				value = strings.Repeat("*", len(value))
			}
		case "algorithm":
			if !otp.KnownAlgorithm(f.Value) {
				value += " (invalid)"
			} else if !strings.EqualFold(f.Value, "sha1") {
				value += " (not supported by most OTP/MFA apps)"
			}
		case "digits":
			if d := c.Digits(); d < 6 || d > 8 {
				value += " (invalid)"
			}
		}
		WriteField(w, titleCase(f.Name), value)
	}

	uri := otpauth.Encode(c)
	if !opts.showSecret() {
		uri = strings.Repeat("*", 30)
	}
	WriteField(w, "URI", uri)

	now := opts.now()
	WriteField(w, "Current Time", now.Format("2006-01-02 15:04:05"))
	code, err := currentCode(c, now)
	if err != nil {
		code = "(invalid)"
	}
	WriteField(w, "Current Code", code)
}

// currentCode computes the code for c without side effects: an HOTP counter
// is not advanced by displaying the credential.
func currentCode(c otp.Credential, now time.Time) (string, error) {
	switch t := c.(type) {
	case *otp.HOTP:
		return t.CodeAt(t.Counter())
	case *otp.TOTP:
		return t.CodeAt(now)
	}
	return c.Code()
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
