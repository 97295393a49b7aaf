// Package migration implements the otpauth-migration:// batch export format
// used by Google Authenticator to transfer several OTP credentials in one QR
// code. The payload is a small protobuf message carried base64-encoded in
// the data query parameter:
//
//	otpauth-migration://offline?data=<base64>
//
// The wire codec here covers exactly the fixed MigrationPayload schema; it
// is not a general-purpose serializer.
package migration

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jacky9813/otp-cli/otp"
)

// Scheme is the URI scheme of a migration batch.
const Scheme = "otpauth-migration"

var (
	// ErrNotMigration is reported when the input is not a migration URI.
	ErrNotMigration = errors.New("not an otpauth-migration URI")

	// ErrNoData is reported when a migration URI has no data parameter.
	ErrNoData = errors.New("migration URI has no data parameter")

	// ErrNoType is reported when a migration record does not specify
	// whether it is an HOTP or TOTP credential.
	ErrNoType = errors.New("migration record has no OTP type")
)

// Field numbers of the MigrationPayload message.
const (
	fieldParameters = 1 // repeated OtpParameters
	fieldVersion    = 2
	fieldBatchSize  = 3
	fieldBatchIndex = 4
	fieldBatchID    = 5
)

// Field numbers of the OtpParameters message.
const (
	paramSecret    = 1 // bytes
	paramName      = 2 // string
	paramIssuer    = 3 // string
	paramAlgorithm = 4 // enum
	paramDigits    = 5 // enum
	paramType      = 6 // enum
	paramCounter   = 7 // int64
)

// Algorithm enum values. MD5 is representable on the wire but is rejected by
// the code engine when a code is computed.
const (
	algSHA1   = 1
	algSHA256 = 2
	algSHA512 = 3
	algMD5    = 4
)

// DigitCount enum values.
const (
	digitsSix   = 1
	digitsEight = 2
)

// OtpType enum values.
const (
	typeHOTP = 1
	typeTOTP = 2
)

// A Batch is an ordered collection of credentials together with the opaque
// envelope metadata of the export. The metadata is carried through a round
// trip unchanged and is not otherwise interpreted.
type Batch struct {
	Credentials []otp.Credential

	Version    int
	BatchSize  int
	BatchIndex int
	BatchID    int
}

// NewBatch wraps creds in a single-part batch with the metadata values
// Google Authenticator emits for a one-QR export.
func NewBatch(creds ...otp.Credential) *Batch {
	return &Batch{Credentials: creds, Version: 2, BatchSize: 1}
}

// Decode parses a migration URI into a batch. It reports ErrNotMigration if
// the scheme is wrong, ErrNoData if the data parameter is missing, and a
// wrapped wire or construction error if the payload is malformed. No partial
// batch is returned on error.
func Decode(s string) (*Batch, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMigration, err)
	}
	if u.Scheme != Scheme {
		return nil, fmt.Errorf("%w (scheme %q)", ErrNotMigration, u.Scheme)
	}
	data := u.Query().Get("data")
	if data == "" {
		return nil, ErrNoData
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid migration data: %w", err)
	}
	return decodePayload(raw)
}

// URL renders the batch as a migration URI. HOTP entries are always
// exported; TOTP entries are exported only if their period is 30 seconds,
// since the payload has no period field and 30 is the only period a
// compatible import accepts. Other TOTP entries are dropped without
// diagnostic.
func (b *Batch) URL() string {
	var payload []byte
	for _, c := range b.Credentials {
		rec, ok := encodeParameters(c)
		if !ok {
			continue
		}
		payload = appendBytes(payload, fieldParameters, rec)
	}
	payload = appendVarint(payload, fieldVersion, uint64(b.Version))
	payload = appendVarint(payload, fieldBatchSize, uint64(b.BatchSize))
	payload = appendVarint(payload, fieldBatchIndex, uint64(b.BatchIndex))
	payload = appendVarint(payload, fieldBatchID, uint64(b.BatchID))

	u := url.URL{
		Scheme:   Scheme,
		Host:     "offline",
		RawQuery: "data=" + url.QueryEscape(base64.StdEncoding.EncodeToString(payload)),
	}
	return u.String()
}

func decodePayload(raw []byte) (*Batch, error) {
	b := new(Batch)
	r := &wireReader{buf: raw}
	for !r.done() {
		field, wtype, err := r.tag()
		if err != nil {
			return nil, fmt.Errorf("migration payload: %w", err)
		}
		if field == fieldParameters && wtype == wireBytes {
			rec, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("migration payload: %w", err)
			}
			cred, err := decodeParameters(rec)
			if err != nil {
				return nil, err
			}
			b.Credentials = append(b.Credentials, cred)
			continue
		}
		if wtype == wireVarint && field >= fieldVersion && field <= fieldBatchID {
			v, err := r.uvarint()
			if err != nil {
				return nil, fmt.Errorf("migration payload: %w", err)
			}
			switch field {
			case fieldVersion:
				b.Version = int(v)
			case fieldBatchSize:
				b.BatchSize = int(v)
			case fieldBatchIndex:
				b.BatchIndex = int(v)
			case fieldBatchID:
				b.BatchID = int(v)
			}
			continue
		}
		// Unknown field: skip by wire type for forward compatibility.
		if err := r.skip(wtype); err != nil {
			return nil, fmt.Errorf("migration payload: %w", err)
		}
	}
	return b, nil
}

// decodeParameters parses one OtpParameters record and builds the matching
// credential. Unknown algorithm and digit-count enum values fall back to
// SHA1 and 6 digits; a missing or unknown OTP type is an error.
func decodeParameters(raw []byte) (otp.Credential, error) {
	var (
		secret       []byte
		name, issuer string
		algorithm    uint64
		digits       uint64
		otpType      uint64
		counter      uint64
	)
	r := &wireReader{buf: raw}
	for !r.done() {
		field, wtype, err := r.tag()
		if err != nil {
			return nil, fmt.Errorf("migration record: %w", err)
		}
		var take *uint64
		switch {
		case field == paramSecret && wtype == wireBytes:
			if secret, err = r.bytes(); err != nil {
				return nil, fmt.Errorf("migration record: %w", err)
			}
			continue
		case field == paramName && wtype == wireBytes:
			v, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("migration record: %w", err)
			}
			name = string(v)
			continue
		case field == paramIssuer && wtype == wireBytes:
			v, err := r.bytes()
			if err != nil {
				return nil, fmt.Errorf("migration record: %w", err)
			}
			issuer = string(v)
			continue
		case field == paramAlgorithm && wtype == wireVarint:
			take = &algorithm
		case field == paramDigits && wtype == wireVarint:
			take = &digits
		case field == paramType && wtype == wireVarint:
			take = &otpType
		case field == paramCounter && wtype == wireVarint:
			take = &counter
		default:
			if err := r.skip(wtype); err != nil {
				return nil, fmt.Errorf("migration record: %w", err)
			}
			continue
		}
		if *take, err = r.uvarint(); err != nil {
			return nil, fmt.Errorf("migration record: %w", err)
		}
	}

	opts := &otp.Options{
		Algorithm: algorithmName(algorithm),
		Digits:    digitCount(digits),
		Counter:   counter,
	}
	if name != "" {
		opts.Info = append(opts.Info, otp.Field{Name: "label", Value: name})
	}
	if issuer != "" {
		opts.Info = append(opts.Info, otp.Field{Name: "issuer", Value: issuer})
	}

	// The wire carries raw key bytes, which for a key supplied as base32 may
	// be fewer than the byte-form minimum. Rebuild through the base32 form so
	// the length rule sees the representation the encoder round-trips.
	b32secret := otp.FormatSecret(secret)

	switch otpType {
	case typeHOTP:
		return otp.NewHOTP(b32secret, opts)
	case typeTOTP:
		return otp.NewTOTP(b32secret, opts)
	case 0:
		return nil, ErrNoType
	}
	return nil, fmt.Errorf("unknown OTP type %d", otpType)
}

// encodeParameters renders one credential as an OtpParameters record. It
// reports false for credentials the format cannot carry.
func encodeParameters(c otp.Credential) ([]byte, bool) {
	var rec []byte
	rec = appendBytes(rec, paramSecret, c.Key())
	rec = appendBytes(rec, paramName, []byte(c.Info().Get("label")))
	rec = appendBytes(rec, paramIssuer, []byte(c.Info().Get("issuer")))
	rec = appendVarint(rec, paramAlgorithm, algorithmValue(c.Algorithm()))
	rec = appendVarint(rec, paramDigits, digitValue(c.Digits()))
	switch t := c.(type) {
	case *otp.HOTP:
		rec = appendVarint(rec, paramType, typeHOTP)
		rec = appendVarint(rec, paramCounter, t.Counter())
	case *otp.TOTP:
		if t.Period() != 30 {
			return nil, false
		}
		rec = appendVarint(rec, paramType, typeTOTP)
	default:
		return nil, false
	}
	return rec, true
}

func algorithmName(v uint64) string {
	switch v {
	case algSHA256:
		return "sha256"
	case algSHA512:
		return "sha512"
	case algMD5:
		return "md5"
	}
	return "sha1" // the nearest default for unknown values
}

func algorithmValue(name string) uint64 {
	switch strings.ToLower(name) {
	case "sha256":
		return algSHA256
	case "sha512":
		return algSHA512
	case "md5":
		return algMD5
	}
	return algSHA1
}

func digitCount(v uint64) int {
	if v == digitsEight {
		return 8
	}
	return 6 // the nearest default for unknown values
}

func digitValue(d int) uint64 {
	if d == 8 {
		return digitsEight
	}
	return digitsSix
}
