// Package otpauth converts OTP credentials to and from the otpauth:// URI
// format understood by authenticator apps:
//
//	otpauth://TYPE/LABEL?secret=...&algorithm=...&digits=...
//
// where TYPE is "totp" or "hotp". Query parameters other than the reserved
// protocol fields pass through into the credential's additional info, in
// document order.
package otpauth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jacky9813/otp-cli/otp"
)

// Scheme is the URI scheme of a single-credential URI.
const Scheme = "otpauth"

var (
	// ErrNotOTPAuth is reported when the input is not an otpauth URI at all.
	ErrNotOTPAuth = errors.New("not an otpauth URI")

	// ErrNoSecret is reported when an otherwise well-formed otpauth URI has
	// no secret parameter.
	ErrNoSecret = errors.New("otpauth URI has no secret")
)

// Encode renders c as an otpauth:// URI. The label, if any, becomes the URI
// path; the remaining display fields become the query string in order.
func Encode(c otp.Credential) string {
	var q []string
	for _, f := range c.Fields() {
		if f.Name == "label" {
			continue // the label lives in the path
		}
		q = append(q, url.QueryEscape(f.Name)+"="+url.QueryEscape(f.Value))
	}
	u := url.URL{
		Scheme:   Scheme,
		Host:     string(c.Kind()),
		Path:     "/" + c.Info().Get("label"),
		RawQuery: strings.Join(q, "&"),
	}
	return u.String()
}

// Decode parses an otpauth:// URI into a credential. It reports
// ErrNotOTPAuth if the scheme is not "otpauth" or the authority is not a
// known OTP type, and ErrNoSecret if the URI carries no secret. Missing
// algorithm, digits, and period parameters default to sha1, 6, and 30.
func Decode(s string) (otp.Credential, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOTPAuth, err)
	}
	if u.Scheme != Scheme {
		return nil, fmt.Errorf("%w (scheme %q)", ErrNotOTPAuth, u.Scheme)
	}
	kind := otp.Kind(u.Host)
	if kind != otp.KindHOTP && kind != otp.KindTOTP {
		return nil, fmt.Errorf("%w (type %q)", ErrNotOTPAuth, u.Host)
	}

	var opts otp.Options
	if label := strings.TrimPrefix(u.Path, "/"); label != "" {
		opts.Info = append(opts.Info, otp.Field{Name: "label", Value: label})
	}

	var secret string
	for query := u.RawQuery; query != ""; {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if pair == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter %q: %w", rawName, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", name, err)
		}
		switch name {
		case "secret":
			secret = value
		case "algorithm":
			opts.Algorithm = value
		case "digits":
			opts.Digits, err = strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid digits %q: %w", value, err)
			}
		case "counter":
			opts.Counter, err = strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid counter %q: %w", value, err)
			}
		case "period":
			opts.Period, err = strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid period %q: %w", value, err)
			}
		default:
			opts.Info = append(opts.Info, otp.Field{Name: name, Value: value})
		}
	}
	if secret == "" {
		return nil, ErrNoSecret
	}

	if kind == otp.KindHOTP {
		return otp.NewHOTP(secret, &opts)
	}
	return otp.NewTOTP(secret, &opts)
}
