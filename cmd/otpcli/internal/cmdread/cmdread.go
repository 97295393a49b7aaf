// Package cmdread implements the "otpcli read" subcommand.
package cmdread

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/jacky9813/otp-cli/migration"
	"github.com/jacky9813/otp-cli/oclib"
	"github.com/jacky9813/otp-cli/otp"
	"github.com/jacky9813/otp-cli/otpauth"
	"github.com/jacky9813/otp-cli/qrc"
)

var readFlags struct {
	NoQR        bool   `flag:"no-qr,Do not render QR codes for the credentials found"`
	ShowSecret  bool   `flag:"show-secret,Print secrets and URIs instead of masking them"`
	ToMigration bool   `flag:"to-migration,Combine all credentials into one migration URI"`
	SetCounter  string `flag:"set-counter,Adjust HOTP counters ([+|-]N) before display"`
}

var Command = &command.C{
	Name:  "read",
	Usage: "<image-path>...",
	Help: `Read OTP credentials from QR code images.

Each image is scanned for QR symbols carrying otpauth or
otpauth-migration URIs. Every credential found is described along
with its current code, and re-rendered as a QR code unless --no-qr
is set. Files that cannot be read or symbols that do not carry OTP
data are reported and skipped.

With --to-migration, all credentials found are combined into a
single otpauth-migration URI instead of being rendered separately.`,
	SetFlags: command.Flags(flax.MustBind, &readFlags),
	Run:      command.Adapt(runRead),
}

func runRead(env *command.Env, imagePath string, morePaths ...string) error {
	applyCounter, err := oclib.ParseCounterSpec(readFlags.SetCounter)
	if err != nil {
		return err
	}

	found := oclib.ReadImages(append([]string{imagePath}, morePaths...), func(path string, err error) {
		log.Printf("WARNING: %s: %v (skipped)", path, err)
	})
	if len(found) == 0 {
		return errors.New("no OTP credentials found in any input")
	}
	for _, f := range found {
		applyCounter(f.Credential)
	}

	if readFlags.ToMigration {
		return writeMigration(env, found)
	}

	opts := &oclib.DisplayOptions{ShowSecret: readFlags.ShowSecret}
	for i, f := range found {
		if i > 0 {
			fmt.Fprintln(env, strings.Repeat("=", 20))
		}
		oclib.WriteField(env, "Source", f.Path)
		oclib.WriteInfo(env, f.Credential, opts)
		if !readFlags.NoQR {
			fmt.Fprintln(env)
			if err := qrc.Encode(env, otpauth.Encode(f.Credential), qrc.Text, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeMigration(env *command.Env, found []oclib.Found) error {
	creds := make([]otp.Credential, len(found))
	for i, f := range found {
		creds[i] = f.Credential
	}
	uri := migration.NewBatch(creds...).URL()

	shown := uri
	if !readFlags.ShowSecret {
		shown = strings.Repeat("*", 30)
	}
	oclib.WriteField(env, "Migration URI", shown)
	if !readFlags.NoQR {
		fmt.Fprintln(env)
		return qrc.Encode(env, uri, qrc.Text, 0)
	}
	return nil
}
