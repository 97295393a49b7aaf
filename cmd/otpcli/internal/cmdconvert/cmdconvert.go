// Package cmdconvert implements the "otpcli convert" subcommand.
package cmdconvert

import (
	"fmt"

	"github.com/creachadair/command"
	"github.com/jacky9813/otp-cli/migration"
	"github.com/jacky9813/otp-cli/oclib"
	"github.com/jacky9813/otp-cli/otpauth"
)

var Command = &command.C{
	Name: "convert",
	Help: `Convert between otpauth and migration URI formats.

The "to-migration" form packs a file of otpauth URIs into a single
otpauth-migration URI suitable for import into an authenticator app.
The "from-migration" form unpacks a migration URI into one otpauth
URI per credential.`,

	Commands: []*command.C{
		{
			Name:  "to-migration",
			Usage: "<uri-file>",
			Help: `Pack otpauth URIs into a migration URI.

The input file contains one otpauth URI per line; blank lines and
lines beginning with "#" are skipped. Note that TOTP credentials
with a period other than 30 seconds cannot be represented in the
migration format and are dropped from the output.`,
			Run: command.Adapt(runToMigration),
		},
		{
			Name:  "from-migration",
			Usage: "<migration-uri>",
			Help:  "Unpack a migration URI into otpauth URIs, one per line.",
			Run:   command.Adapt(runFromMigration),
		},
	},
}

func runToMigration(env *command.Env, uriFile string) error {
	creds, err := oclib.LoadURIFile(uriFile)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		return fmt.Errorf("no credentials found in %q", uriFile)
	}
	fmt.Fprintln(env, migration.NewBatch(creds...).URL())
	return nil
}

func runFromMigration(env *command.Env, uri string) error {
	b, err := migration.Decode(uri)
	if err != nil {
		return err
	}
	for _, c := range b.Credentials {
		fmt.Fprintln(env, otpauth.Encode(c))
	}
	return nil
}
