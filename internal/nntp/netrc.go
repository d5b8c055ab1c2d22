package nntp

import (
	"os"
	"path/filepath"

	"github.com/bgentry/go-netrc/netrc"
)

// lookupNetrc consults ~/.netrc for a machine entry matching host, used
// only when a server has no username/password configured (spec.md §4.1).
// Any error (no file, no entry) is treated as "no credentials" rather than
// a hard failure.
func lookupNetrc(host string) (user, pass string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	n, err := netrc.ParseFile(filepath.Join(home, ".netrc"))
	if err != nil {
		return "", ""
	}
	m := n.FindMachine(host)
	if m == nil {
		return "", ""
	}
	return m.Login, m.Password
}
