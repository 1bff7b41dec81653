package cmd

import (
	"context"
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/core"
)

// ListOptions are the list command's own flags.
type ListOptions struct {
	Format   string
	Password bool // Prompt for a password even when the name has no .enc
}

// List shows the entries stored in an archive
func List(ctx context.Context, env *Env, archivePath string, opts ListOptions) {
	defer env.Close()
	a := env.Archiver(false)
	format := parseFormatFlag(opts.Format)

	var (
		detected archive.Format
		entries  []core.EntryInfo
	)
	err := env.WithPassword(archivePath, opts.Password, func(password []byte) error {
		var err error
		detected, entries, err = a.List(ctx, archivePath, format, password)
		return err
	})
	if err != nil {
		HandleError(err)
	}

	if len(entries) == 0 {
		fmt.Printf("No entries in %s (%s)\n", archivePath, detected)
		return
	}

	var total int64
	fmt.Printf("Entries in %s (%s):\n", archivePath, detected)
	for _, e := range entries {
		fmt.Printf("  %s (%s)\n", e.Name, formatSize(e.Size))
		total += e.Size
	}
	fmt.Printf("%d entries, %s\n", len(entries), formatSize(total))
}
