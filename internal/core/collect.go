package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/logging"
	"github.com/Murchiz/Gpucompress/internal/security"
)

const readWorkers = 8

type source struct {
	name string
	path string
}

// Collect reads input files and directories into archive entries. A file
// is stored under its base name; a directory contributes every regular
// file below it, named relative to the directory's parent. Symlinks and
// special files are skipped with a warning.
func Collect(ctx context.Context, inputs []string, log logging.Logger) ([]archive.Entry, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	var sources []source
	for _, input := range inputs {
		found, err := walkInput(input, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}

	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if seen[s.name] {
			log.Warnf("duplicate entry %s: the last one wins on extract", s.name)
		}
		seen[s.name] = true
	}

	entries := make([]archive.Entry, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readWorkers)
	for i, s := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(s.path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", s.path, err)
			}
			entries[i] = archive.Entry{Name: s.name, Data: data}
			log.Debugf("read %s (%d bytes)", s.name, len(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkInput(input string, log logging.Logger) ([]source, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", input, err)
	}

	prefix := filepath.Base(abs)
	if prefix == string(filepath.Separator) || prefix == "." {
		prefix = ""
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			log.Warnf("skipping %s: not a regular file", input)
			return nil, nil
		}
		name, err := security.CleanName(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid entry name for %s: %w", input, err)
		}
		return []source{{name: name, path: abs}}, nil
	}

	var out []source
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			log.Warnf("skipping %s: not a regular file", p)
			return nil
		}

		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		name, err := security.CleanName(path.Join(prefix, filepath.ToSlash(rel)))
		if err != nil {
			return fmt.Errorf("invalid entry name for %s: %w", p, err)
		}
		out = append(out, source{name: name, path: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", input, err)
	}
	return out, nil
}
