package blob

import (
	"github.com/spf13/afero"

	"ecoresiduos/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed Store rooted at root on afs.
// An empty baseURL keeps the driver default.
func NewFilesystem(afs afero.Fs, root, baseURL string) (Store, error) {
	var opts []fs.Option
	if baseURL != "" {
		opts = append(opts, fs.WithBaseURL(baseURL))
	}
	return fs.New(afs, root, opts...)
}
