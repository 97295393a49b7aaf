package otp

import (
	"fmt"

	"github.com/creachadair/mds/mapset"
)

// An Info is an ordered mapping of free-form string annotations on a
// credential, such as its label and issuer. Names that collide with the
// protocol-reserved URI parameters of the owning credential are rejected at
// insertion.
type Info struct {
	reserved mapset.Set[string]
	names    []string
	vals     map[string]string
}

func newInfo(reserved []string) *Info {
	return &Info{
		reserved: mapset.New(reserved...),
		vals:     make(map[string]string),
	}
}

// Set adds or replaces the entry for name. Insertion order is preserved;
// replacing a value keeps the entry's original position.
func (in *Info) Set(name, value string) error {
	if in.reserved.Has(name) {
		return fmt.Errorf("info name %q is reserved", name)
	}
	if _, ok := in.vals[name]; !ok {
		in.names = append(in.names, name)
	}
	in.vals[name] = value
	return nil
}

// Get returns the value for name, or "" if it is not set.
func (in *Info) Get(name string) string { return in.vals[name] }

// Len reports the number of entries.
func (in *Info) Len() int { return len(in.names) }

// Fields returns the entries in insertion order, omitting empty values.
func (in *Info) Fields() []Field {
	var fs []Field
	for _, name := range in.names {
		if v := in.vals[name]; v != "" {
			fs = append(fs, Field{name, v})
		}
	}
	return fs
}
