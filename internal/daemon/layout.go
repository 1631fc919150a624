package daemon

import (
	"os"

	"github.com/pkg/errors"
)

// Layout is the set of working directories one daemon instance needs,
// mirroring dev/src/daemon.py's create_folder('../sessions') bootstrap
// but extended to the work and publish directories Capture/Archive/Stage
// each use for scratch state and outbound bundles.
type Layout struct {
	Sessions string
	Work     string
	Publish  string
}

// Ensure creates every directory in the layout that doesn't already
// exist.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Sessions, l.Work, l.Publish} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating directory %s", dir)
		}
	}
	return nil
}
