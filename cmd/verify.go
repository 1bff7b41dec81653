package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Murchiz/Gpucompress/internal/core"
)

// Verify decodes an archive completely and checks it against the
// manifest recorded when it was written.
func Verify(ctx context.Context, env *Env, archivePath, format string, forcePassword bool) {
	defer env.Close()
	a := env.Archiver(true)
	f := parseFormatFlag(format)

	var result *core.VerifyResult
	err := env.WithPassword(archivePath, forcePassword, func(password []byte) error {
		stop := startSpinner("Verifying...", env.Log)
		defer stop("")
		var err error
		result, err = a.Verify(ctx, archivePath, f, password)
		return err
	})
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("%s: %s, %d entries, %s\n", archivePath, result.Format, result.Entries, formatSize(result.Size))
	if result.Record == nil {
		fmt.Println("Decoded OK (not in catalog, contents not checked)")
		return
	}

	for _, name := range result.Mismatched {
		fmt.Printf("  modified:   %s\n", name)
	}
	for _, name := range result.Missing {
		fmt.Printf("  missing:    %s\n", name)
	}
	for _, name := range result.Unexpected {
		fmt.Printf("  unexpected: %s\n", name)
	}
	if !result.OK() {
		fmt.Printf("FAILED: does not match record %s\n", shortID(result.Record.ID))
		env.Close()
		os.Exit(1)
	}
	fmt.Printf("OK: matches record %s\n", shortID(result.Record.ID))
}
