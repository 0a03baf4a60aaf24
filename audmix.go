// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ik5/audmix/clip"
	"github.com/ik5/audmix/config"
	"github.com/ik5/audmix/mixer"
)

// Open reads the configuration configName from fsys and returns a Director
// whose clips are read from the same file system.
func Open(fsys fs.FS, configName string, device mixer.Device, opts ...mixer.Option) (*mixer.Director, error) {
	cfg, err := config.LoadFS(fsys, configName)
	if err != nil {
		return nil, err
	}
	return mixer.New(cfg, clip.NewLoader(fsys, nil), device, opts...), nil
}

// NewFromFile is Open over the directory holding path. Clip file names are
// relative to that directory.
func NewFromFile(path string, device mixer.Device, opts ...mixer.Option) (*mixer.Director, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return Open(os.DirFS(dir), name, device, opts...)
}
