// Program otpcli is a command-line tool for one-time password credentials.
package main

import (
	"os"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/jacky9813/otp-cli/cmd/otpcli/config"

	"github.com/jacky9813/otp-cli/cmd/otpcli/internal/cmdbuild"
	"github.com/jacky9813/otp-cli/cmd/otpcli/internal/cmdconvert"
	"github.com/jacky9813/otp-cli/cmd/otpcli/internal/cmdread"
	"github.com/jacky9813/otp-cli/cmd/otpcli/internal/cmdwatch"
)

func main() {
	var flags struct {
		Config string `flag:"config,default=$OTPCLI_CONFIG,Configuration file path (optional)"`
	}
	root := &command.C{
		Name: command.ProgramName(),
		Help: `A command-line tool for one-time password (OTP) credentials.

Otpcli reads OTP credentials out of QR code images, generates current
HOTP and TOTP codes, builds new credentials as otpauth URIs or QR
codes, and converts between single-credential otpauth URIs and the
batched otpauth-migration format used by authenticator app exports.

Defaults for new credentials may be set in a YAML configuration file;
use --config to specify its path, or set the OTPCLI_CONFIG environment
variable.`,

		SetFlags: command.Flags(flax.MustBind, &flags),

		Init: func(env *command.Env) error {
			s, err := config.Load(flags.Config)
			if err != nil {
				return err
			}
			env.Config = s
			return nil
		},

		Commands: []*command.C{
			cmdread.Command,
			cmdbuild.Command,
			cmdconvert.Command,
			cmdwatch.Command,
			command.HelpCommand([]command.HelpTopic{{
				Name: "otpauth",
				Help: `Syntax of otpauth URIs.

A credential URI has the form

   otpauth://TYPE/LABEL?secret=BASE32&PARAM=VALUE&...

where TYPE is "totp" or "hotp" and LABEL identifies the account. The
secret parameter is required. Recognized optional parameters are
algorithm (sha1, sha256, sha512), digits (6 to 8), counter (hotp),
and period (totp, in seconds); anything else is kept as free-form
annotation. The batched export format used by authenticator apps is

   otpauth-migration://offline?data=BASE64

where the data parameter packs one or more credentials.`,
			}}),
			command.VersionCommand(),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}
