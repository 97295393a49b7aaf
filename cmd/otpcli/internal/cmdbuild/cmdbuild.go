// Package cmdbuild implements the "otpcli build" subcommand.
package cmdbuild

import (
	"cmp"
	"fmt"
	"io"
	"strconv"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/jacky9813/otp-cli/cmd/otpcli/config"
	"github.com/jacky9813/otp-cli/migration"
	"github.com/jacky9813/otp-cli/oclib"
	"github.com/jacky9813/otp-cli/otp"
	"github.com/jacky9813/otp-cli/otpauth"
	"github.com/jacky9813/otp-cli/qrc"
)

var buildFlags struct {
	Label       string `flag:"label,Account label for the credential"`
	Issuer      string `flag:"issuer,Issuer name for the credential"`
	Algorithm   string `flag:"algorithm,HMAC digest algorithm (sha1, sha256, sha512)"`
	Digits      int    `flag:"digits,Number of code digits (6 to 8)"`
	Period      int    `flag:"period,Time step in seconds (totp only)"`
	Secret      string `flag:"secret-file,Read the secret from this file ('-' for stdin; default prompts)"`
	ToMigration bool   `flag:"to-migration,Emit a migration URI instead of an otpauth URI"`
	Output      string `flag:"output,default=-,Output path (.png or .svg render a QR code; '-' prints text)"`
}

var Command = &command.C{
	Name: "build",
	Help: `Build a new OTP credential.

The secret is read from the --secret-file path as raw key bytes, from
stdin if the path is "-", or typed at a prompt as base32 if the flag
is unset. The credential is written as an otpauth URI (or, with
--to-migration, as a single-credential migration URI), either as text
or as a QR code image depending on the --output extension.`,
	SetFlags: command.Flags(flax.MustBind, &buildFlags),

	Commands: []*command.C{
		{
			Name: "totp",
			Help: "Build a time-based (TOTP) credential.",
			Run:  command.Adapt(runTOTP),
		},
		{
			Name:  "hotp",
			Usage: "[counter]",
			Help:  "Build a counter-based (HOTP) credential.",
			Run:   command.Adapt(runHOTP),
		},
	},
}

func runTOTP(env *command.Env) error {
	set := config.FromEnv(env)
	secret, opts, err := baseOptions(set)
	if err != nil {
		return err
	}
	opts.Period = cmp.Or(buildFlags.Period, set.Period)
	cred, err := secret.totp(opts)
	if err != nil {
		return err
	}
	return writeOutput(env, cred, set)
}

func runHOTP(env *command.Env, args ...string) error {
	if len(args) > 1 {
		return env.Usagef("extra arguments after counter: %q", args[1:])
	}
	set := config.FromEnv(env)
	secret, opts, err := baseOptions(set)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		opts.Counter, err = strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid counter %q: %w", args[0], err)
		}
	}
	cred, err := secret.hotp(opts)
	if err != nil {
		return err
	}
	return writeOutput(env, cred, set)
}

// A secretInput preserves the representation the secret was supplied in,
// since the minimum-length rule applies to the form given: base32 text from
// the prompt, raw bytes from a file or stdin.
type secretInput struct {
	text string
	raw  []byte
}

func (s secretInput) totp(opts *otp.Options) (otp.Credential, error) {
	if s.raw != nil {
		return otp.NewTOTP(s.raw, opts)
	}
	return otp.NewTOTP(s.text, opts)
}

func (s secretInput) hotp(opts *otp.Options) (otp.Credential, error) {
	if s.raw != nil {
		return otp.NewHOTP(s.raw, opts)
	}
	return otp.NewHOTP(s.text, opts)
}

// baseOptions reads the secret and assembles the credential options shared
// by both variants, merging flags over the configuration defaults.
func baseOptions(set *config.Settings) (secretInput, *otp.Options, error) {
	var secret secretInput
	if buildFlags.Secret == "" {
		text, err := oclib.PromptSecret()
		if err != nil {
			return secretInput{}, nil, err
		}
		secret.text = text
	} else {
		raw, err := oclib.ReadSecret(buildFlags.Secret)
		if err != nil {
			return secretInput{}, nil, err
		}
		secret.raw = raw
	}
	opts := &otp.Options{
		Algorithm: cmp.Or(buildFlags.Algorithm, set.Algorithm),
		Digits:    cmp.Or(buildFlags.Digits, set.Digits),
	}
	if label := buildFlags.Label; label != "" {
		opts.Info = append(opts.Info, otp.Field{Name: "label", Value: label})
	}
	if issuer := cmp.Or(buildFlags.Issuer, set.Issuer); issuer != "" {
		opts.Info = append(opts.Info, otp.Field{Name: "issuer", Value: issuer})
	}
	return secret, opts, nil
}

func writeOutput(env *command.Env, cred otp.Credential, set *config.Settings) error {
	uri := otpauth.Encode(cred)
	if buildFlags.ToMigration {
		uri = migration.NewBatch(cred).URL()
	}
	format, err := qrc.ParseFormat(buildFlags.Output)
	if err != nil {
		return err
	}
	if format == qrc.Text {
		fmt.Fprintln(env, uri)
		return nil
	}
	return atomicfile.Tx(buildFlags.Output, 0644, func(w io.Writer) error {
		return qrc.Encode(w, uri, format, set.QRScale)
	})
}
