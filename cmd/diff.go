package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Murchiz/Gpucompress/internal/core"
)

// Diff compares an archive with the files under dir
func Diff(ctx context.Context, env *Env, archivePath, dir, format string, forcePassword bool) {
	defer env.Close()
	a := env.Archiver(false)
	f := parseFormatFlag(format)

	var result *core.DiffResult
	err := env.WithPassword(archivePath, forcePassword, func(password []byte) error {
		var err error
		result, err = a.Diff(ctx, archivePath, f, password, dir, os.Stdout)
		return err
	})
	if err != nil {
		HandleError(err)
	}

	if len(result.Changed) == 0 && len(result.Missing) == 0 {
		fmt.Printf("No differences (%d entries)\n", len(result.Unchanged))
		return
	}
	fmt.Printf("\n%d changed, %d only in archive, %d unchanged\n",
		len(result.Changed), len(result.Missing), len(result.Unchanged))
}
