// Package cmdwatch implements the "otpcli watch" subcommand.
package cmdwatch

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/creachadair/command"
	"github.com/jacky9813/otp-cli/oclib"
	"github.com/jacky9813/otp-cli/otp"
	"golang.org/x/term"
)

var Command = &command.C{
	Name:  "watch",
	Usage: "<uri-file>",
	Help: `Continuously display current codes for a file of credentials.

The input file contains one otpauth URI per line; blank lines and
lines beginning with "#" are skipped. The display refreshes as TOTP
codes roll over, and the file is reloaded automatically when it
changes. Interrupt (Ctrl-C) to exit.`,
	Run: command.Adapt(runWatch),
}

func runWatch(env *command.Env, uriFile string) error {
	w, err := oclib.NewWatcher(uriFile)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(env.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go w.Run(ctx)

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	var last string
	for {
		out := render(w.Credentials(), time.Now())
		if out != last {
			if isTTY {
				fmt.Fprint(env, "\x1b[H\x1b[2J") // clear the screen
			}
			fmt.Fprint(env, out)
			last = out
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(env)
			return nil
		case <-tick.C:
		}
	}
}

// render formats one line per credential. HOTP codes are computed from the
// stored counter without advancing it.
func render(creds []otp.Credential, now time.Time) string {
	var sb strings.Builder
	for _, c := range creds {
		label := c.Info().Get("label")
		if label == "" {
			label = "(unlabeled)"
		}
		if issuer := c.Info().Get("issuer"); issuer != "" {
			label = issuer + ": " + label
		}
		code, err := currentCode(c, now)
		if err != nil {
			code = "(invalid)"
		}
		fmt.Fprintf(&sb, "%-40s %s\n", label, code)
	}
	return sb.String()
}

func currentCode(c otp.Credential, now time.Time) (string, error) {
	switch t := c.(type) {
	case *otp.HOTP:
		return t.CodeAt(t.Counter())
	case *otp.TOTP:
		return t.CodeAt(now)
	}
	return c.Code()
}
