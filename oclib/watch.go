package oclib

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/jacky9813/otp-cli/otp"
	"github.com/jacky9813/otp-cli/otpauth"
)

// LoadURIFile reads a text file containing one otpauth URI per line and
// parses each into a credential. Blank lines and lines beginning with "#"
// are skipped.
func LoadURIFile(path string) ([]otp.Credential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var creds []otp.Credential
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		c, err := otpauth.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		creds = append(creds, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return creds, nil
}

// Watcher is a credential list connected with a file path watcher, that
// reloads the file when it is modified.
type Watcher struct {
	path string
	fw   *fsnotify.Watcher

	μ         sync.Mutex
	creds     []otp.Credential
	hasUpdate bool
}

// NewWatcher creates a watcher that automatically reloads the credential
// list at path when that path is modified.
func NewWatcher(path string) (*Watcher, error) {
	creds, err := LoadURIFile(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, fw: fw, creds: creds}, nil
}

// Credentials returns the current credential list. If an update is
// available, Credentials tries to load it, but in case of error it falls
// back to the existing value.
func (w *Watcher) Credentials() []otp.Credential {
	w.μ.Lock()
	defer w.μ.Unlock()

	for w.hasUpdate {
		creds, err := LoadURIFile(w.path)
		if err != nil {
			log.Printf("WARNING: Load credentials: %v (skipped)", err)
			// N.B. Don't reset the flag; it might just be an incomplete update.
			break
		}
		log.Printf("Updated credentials %q", w.path)
		w.hasUpdate = false
		w.creds = creds
	}
	return w.creds
}

// Run monitors for changes to the credential path in w, and updates it when
// the underlying file is modified. Run should be run in a separate
// goroutine. It exits when the watcher closes, or ctx ends.
func (w *Watcher) Run(ctx context.Context) {
	w.fw.Add(w.path)
	defer w.fw.Close()

	for {
		select {
		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Rename != 0 {
				log.Printf("Credential file %q has moved; stopping the watcher", w.path)
				return
			} else if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) == 0 {
				continue // not relevant here
			}
			w.μ.Lock()
			w.hasUpdate = true // read by Credentials
			w.μ.Unlock()
		case e, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: Error watching %q: %v", w.path, e)
		case <-ctx.Done():
			return
		}
	}
}
