package otp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jacky9813/otp-cli/otp"
)

// rfcSecret is the shared secret of RFC 4226 Appendix D and RFC 6238
// Appendix B (for SHA1).
var rfcSecret = []byte("12345678901234567890")

func TestHOTPVectors(t *testing.T) {
	// RFC 4226 Appendix D, all ten reference codes.
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}
	h, err := otp.NewHOTP(rfcSecret, nil)
	if err != nil {
		t.Fatalf("NewHOTP: unexpected error: %v", err)
	}
	for c, w := range want {
		got, err := h.CodeAt(uint64(c))
		if err != nil {
			t.Fatalf("CodeAt(%d): unexpected error: %v", c, err)
		}
		if got != w {
			t.Errorf("CodeAt(%d): got %q, want %q", c, got, w)
		}
	}
}

func TestCounterAdvance(t *testing.T) {
	h, err := otp.NewHOTP(rfcSecret, &otp.Options{Counter: 5})
	if err != nil {
		t.Fatalf("NewHOTP: unexpected error: %v", err)
	}

	// Code uses the stored counter, then advances it.
	got, err := h.Code()
	if err != nil {
		t.Fatalf("Code: unexpected error: %v", err)
	}
	if want := "254676"; got != want {
		t.Errorf("Code at counter 5: got %q, want %q", got, want)
	}
	if c := h.Counter(); c != 6 {
		t.Errorf("Counter after Code: got %d, want 6", c)
	}

	// The next call produces the counter-6 code.
	got, err = h.Code()
	if err != nil {
		t.Fatalf("Code: unexpected error: %v", err)
	}
	if want := "287922"; got != want {
		t.Errorf("Code at counter 6: got %q, want %q", got, want)
	}
	if c := h.Counter(); c != 7 {
		t.Errorf("Counter after Code: got %d, want 7", c)
	}

	// CodeAt leaves the stored counter alone.
	if _, err := h.CodeAt(100); err != nil {
		t.Fatalf("CodeAt: unexpected error: %v", err)
	}
	if c := h.Counter(); c != 7 {
		t.Errorf("Counter after CodeAt: got %d, want 7", c)
	}

	h.SetCounter(0)
	got, err = h.Code()
	if err != nil {
		t.Fatalf("Code: unexpected error: %v", err)
	}
	if want := "755224"; got != want {
		t.Errorf("Code at counter 0: got %q, want %q", got, want)
	}
}

func TestTOTPVectors(t *testing.T) {
	tests := []struct {
		name      string
		secret    any
		algorithm string
		digits    int
		at        int64
		want      string
	}{
		// The stock demonstration secret ("Hello!" plus four hex bytes).
		{"demo", "JBSWY3DPEHPK3PXP", "sha1", 6, 59, "996554"},

		// RFC 6238 Appendix B, SHA1 rows.
		{"rfc59", rfcSecret, "sha1", 8, 59, "94287082"},
		{"rfc1111111109", rfcSecret, "sha1", 8, 1111111109, "07081804"},

		// RFC 6238 Appendix B extends the secret for the larger digests.
		{"sha256", []byte("12345678901234567890123456789012"), "sha256", 8, 59, "46119246"},
		{"sha512", []byte("1234567890123456789012345678901234567890123456789012345678901234"), "sha512", 8, 59, "90693936"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := &otp.Options{Algorithm: tc.algorithm, Digits: tc.digits}
			var (
				tp  *otp.TOTP
				err error
			)
			switch s := tc.secret.(type) {
			case string:
				tp, err = otp.NewTOTP(s, opts)
			case []byte:
				tp, err = otp.NewTOTP(s, opts)
			}
			if err != nil {
				t.Fatalf("NewTOTP: unexpected error: %v", err)
			}
			got, err := tp.CodeAt(time.Unix(tc.at, 0))
			if err != nil {
				t.Fatalf("CodeAt(%d): unexpected error: %v", tc.at, err)
			}
			if got != tc.want {
				t.Errorf("CodeAt(%d): got %q, want %q", tc.at, got, tc.want)
			}
		})
	}
}

func TestConstruction(t *testing.T) {
	t.Run("EmptyBytes", func(t *testing.T) {
		if _, err := otp.NewHOTP([]byte(nil), nil); !errors.Is(err, otp.ErrEmptySecret) {
			t.Errorf("NewHOTP(empty): got %v, want %v", err, otp.ErrEmptySecret)
		}
	})
	t.Run("EmptyString", func(t *testing.T) {
		if _, err := otp.NewTOTP("", nil); !errors.Is(err, otp.ErrEmptySecret) {
			t.Errorf("NewTOTP(empty): got %v, want %v", err, otp.ErrEmptySecret)
		}
	})
	t.Run("Short15Bytes", func(t *testing.T) {
		if _, err := otp.NewHOTP(make([]byte, 15), nil); !errors.Is(err, otp.ErrShortSecret) {
			t.Errorf("NewHOTP(15 bytes): got %v, want %v", err, otp.ErrShortSecret)
		}
	})
	t.Run("Exactly16Bytes", func(t *testing.T) {
		if _, err := otp.NewHOTP(make([]byte, 16), nil); err != nil {
			t.Errorf("NewHOTP(16 bytes): unexpected error: %v", err)
		}
	})
	t.Run("ShortString", func(t *testing.T) {
		if _, err := otp.NewTOTP("JBSWY3DPEHPK3PX", nil); !errors.Is(err, otp.ErrShortSecret) {
			t.Errorf("NewTOTP(15 chars): got %v, want %v", err, otp.ErrShortSecret)
		}
	})
	t.Run("BadBase32", func(t *testing.T) {
		if _, err := otp.NewTOTP("!!!!!!!!!!!!!!!!", nil); err == nil {
			t.Error("NewTOTP(invalid base32): got nil, want error")
		}
	})
	t.Run("NegativePeriod", func(t *testing.T) {
		if _, err := otp.NewTOTP(rfcSecret, &otp.Options{Period: -5}); err == nil {
			t.Error("NewTOTP(period -5): got nil, want error")
		}
	})

	// Construction is lenient about algorithm and digits; only code
	// computation rejects them.
	t.Run("Lenient", func(t *testing.T) {
		h, err := otp.NewHOTP(rfcSecret, &otp.Options{Algorithm: "md5", Digits: 9})
		if err != nil {
			t.Fatalf("NewHOTP: unexpected error: %v", err)
		}
		if got := h.Algorithm(); got != "md5" {
			t.Errorf("Algorithm: got %q, want %q", got, "md5")
		}
		if got := h.Digits(); got != 9 {
			t.Errorf("Digits: got %d, want 9", got)
		}
	})
}

func TestComputeValidation(t *testing.T) {
	tests := []struct {
		name string
		opts otp.Options
		want error
	}{
		{"Digits5", otp.Options{Digits: 5}, otp.ErrBadDigits},
		{"Digits9", otp.Options{Digits: 9}, otp.ErrBadDigits},
		{"MD5", otp.Options{Algorithm: "md5"}, otp.ErrBadAlgorithm},
		{"Unknown", otp.Options{Algorithm: "whirlpool"}, otp.ErrBadAlgorithm},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, err := otp.NewHOTP(rfcSecret, &tc.opts)
			if err != nil {
				t.Fatalf("NewHOTP: unexpected error: %v", err)
			}
			before := h.Counter()
			if _, err := h.Code(); !errors.Is(err, tc.want) {
				t.Errorf("Code: got %v, want %v", err, tc.want)
			}
			if c := h.Counter(); c != before {
				t.Errorf("Counter after failed Code: got %d, want %d", c, before)
			}
		})
	}
}

func TestInfoReservedKeys(t *testing.T) {
	h, err := otp.NewHOTP(rfcSecret, nil)
	if err != nil {
		t.Fatalf("NewHOTP: unexpected error: %v", err)
	}
	for _, name := range []string{"secret", "algorithm", "digits", "counter"} {
		if err := h.Info().Set(name, "x"); err == nil {
			t.Errorf("Set(%q) on HOTP: got nil, want error", name)
		}
	}
	// "period" is reserved only on the time-based variant.
	if err := h.Info().Set("period", "60"); err != nil {
		t.Errorf("Set(period) on HOTP: unexpected error: %v", err)
	}

	tp, err := otp.NewTOTP(rfcSecret, nil)
	if err != nil {
		t.Fatalf("NewTOTP: unexpected error: %v", err)
	}
	for _, name := range []string{"secret", "algorithm", "digits", "period"} {
		if err := tp.Info().Set(name, "x"); err == nil {
			t.Errorf("Set(%q) on TOTP: got nil, want error", name)
		}
	}
	if err := tp.Info().Set("counter", "3"); err != nil {
		t.Errorf("Set(counter) on TOTP: unexpected error: %v", err)
	}

	// A reserved info entry at construction fails the whole construction.
	if _, err := otp.NewTOTP(rfcSecret, &otp.Options{
		Info: []otp.Field{{Name: "secret", Value: "sneaky"}},
	}); err == nil {
		t.Error("NewTOTP with reserved info: got nil, want error")
	}
}

func TestFields(t *testing.T) {
	h, err := otp.NewHOTP(rfcSecret, &otp.Options{
		Algorithm: "sha256",
		Digits:    8,
		Counter:   3,
		Info: []otp.Field{
			{Name: "label", Value: "alice@example.com"},
			{Name: "issuer", Value: "Example"},
			{Name: "note", Value: ""}, // empty values are not displayed
		},
	})
	if err != nil {
		t.Fatalf("NewHOTP: unexpected error: %v", err)
	}
	want := []otp.Field{
		{"secret", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
		{"algorithm", "SHA256"},
		{"digits", "8"},
		{"counter", "3"},
		{"label", "alice@example.com"},
		{"issuer", "Example"},
	}
	if diff := cmp.Diff(h.Fields(), want); diff != "" {
		t.Errorf("HOTP fields (-got, +want):\n%s", diff)
	}

	tp, err := otp.NewTOTP(rfcSecret, &otp.Options{Period: 60})
	if err != nil {
		t.Fatalf("NewTOTP: unexpected error: %v", err)
	}
	want = []otp.Field{
		{"secret", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
		{"algorithm", "SHA1"},
		{"digits", "6"},
		{"period", "60"},
	}
	if diff := cmp.Diff(tp.Fields(), want); diff != "" {
		t.Errorf("TOTP fields (-got, +want):\n%s", diff)
	}
}

func TestParseSecret(t *testing.T) {
	want := []byte("Hello!\xde\xad\xbe\xef")
	for _, in := range []string{
		"JBSWY3DPEHPK3PXP",
		"jbswy3dpehpk3pxp",
		"JBSWY3DPEHPK3PXP========",
	} {
		got, err := otp.ParseSecret(in)
		if err != nil {
			t.Errorf("ParseSecret(%q): unexpected error: %v", in, err)
		} else if string(got) != string(want) {
			t.Errorf("ParseSecret(%q): got %x, want %x", in, got, want)
		}
	}
	if _, err := otp.ParseSecret("1nvalid!"); err == nil {
		t.Error("ParseSecret(invalid): got nil, want error")
	}
}

func TestSecretRoundTrip(t *testing.T) {
	h, err := otp.NewHOTP("JBSWY3DPEHPK3PXP", nil)
	if err != nil {
		t.Fatalf("NewHOTP: unexpected error: %v", err)
	}
	if got := h.Secret(); got != "JBSWY3DPEHPK3PXP" {
		t.Errorf("Secret: got %q, want %q", got, "JBSWY3DPEHPK3PXP")
	}
	if string(h.Key()) != "Hello!\xde\xad\xbe\xef" {
		t.Errorf("Key: got %x", h.Key())
	}
}
