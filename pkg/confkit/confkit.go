// Package confkit holds the small config-loading helpers shared by the
// goldmonitor binaries: path resolution relative to the main config file,
// typed section hydration, and one-shot dotenv loading.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables in file and resolves it against
// base. Absolute paths are returned as-is after expansion; relative paths are
// joined onto base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory containing the main config file. Section
// files named with relative paths are resolved against it.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// LoadFile parses a yaml config file into T via go-zero's conf loader.
// When useEnv is set, ${VAR} references inside the file are expanded from the
// environment before unmarshalling.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	opts := []conf.Option{}
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Section is a config block that lives in its own file. The main config names
// the file; Hydrate loads it into Value. An empty File leaves the section
// unloaded so callers can fall back to built-in defaults.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate resolves the section file against base and loads it through the
// supplied loader. After a successful load, File holds the resolved path.
// A section with no file is a no-op.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}
