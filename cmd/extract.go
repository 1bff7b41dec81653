package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/git"
)

// ExtractOptions are the extract command's own flags.
type ExtractOptions struct {
	Dest     string
	Format   string
	Conflict string // Overrides the configured strategy when set
	Password bool   // Prompt for a password even when the name has no .enc
	Patterns []string
}

// Extract writes an archive's entries below the destination directory
func Extract(ctx context.Context, env *Env, archivePath string, opts ExtractOptions) {
	defer env.Close()

	conflict := env.Config.Conflict
	if opts.Conflict != "" {
		conflict = opts.Conflict
	}
	strategy, err := core.ParseStrategy(conflict)
	if err != nil {
		HandleError(err)
	}
	dest := opts.Dest
	if dest == "" {
		dest = "."
	}

	a := env.Archiver(false)
	format := parseFormatFlag(opts.Format)

	var (
		result    *core.ExtractResult
		decrypted bool
	)
	err = env.WithPassword(archivePath, opts.Password, func(password []byte) error {
		// Interactive conflict prompts cannot share the terminal with a spinner
		stop := func(string) {}
		if strategy != core.StrategyAsk {
			stop = startSpinner("Extracting...", env.Log)
		}
		var err error
		result, err = a.Extract(ctx, core.ExtractRequest{
			Archive:  archivePath,
			Dest:     dest,
			Format:   format,
			Password: password,
			Strategy: strategy,
			Patterns: opts.Patterns,
		})
		stop("")
		decrypted = len(password) > 0
		return err
	})
	if err != nil {
		HandleError(err)
	}

	for _, name := range result.Extracted {
		fmt.Printf("  extracted: %s\n", name)
	}
	for _, name := range result.Skipped {
		fmt.Printf("  skipped:   %s\n", name)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "  error:     %s\n", msg)
	}
	fmt.Printf("%s (%s): %d extracted, %d skipped, %d failed\n",
		archivePath, result.Format, len(result.Extracted), len(result.Skipped), len(result.Errors))

	if decrypted && len(result.Extracted) > 0 {
		if warning := git.FormatStatus(git.CheckExtracted(dest, result.Extracted)); warning != "" {
			fmt.Fprint(os.Stderr, warning)
		}
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
