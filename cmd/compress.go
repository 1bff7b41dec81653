package cmd

import (
	"context"
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/crypto"
)

// CompressOptions are the compress command's own flags.
type CompressOptions struct {
	Output  string
	Format  string
	Encrypt bool
	Force   bool
	// SavePassword stores the new password in the keyring without asking.
	SavePassword bool
}

// Compress packs inputs into one archive.
func Compress(ctx context.Context, env *Env, inputs []string, opts CompressOptions) {
	defer env.Close()

	if _, encrypted, _ := archive.FormatFromPath(opts.Output); opts.Output != "" && encrypted {
		opts.Encrypt = true
	}

	var password []byte
	var source PasswordSource
	if opts.Encrypt {
		var err error
		password, source, err = NewPassword()
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(password)
	}

	a := env.Archiver(true)
	format := parseFormatFlag(opts.Format)

	stop := startSpinner("Compressing...", env.Log)
	result, err := a.Compress(ctx, core.CompressRequest{
		Inputs:   inputs,
		Output:   opts.Output,
		Format:   format,
		Password: password,
		Force:    opts.Force,
	})
	if err != nil {
		stop("")
		HandleError(err)
	}
	stop(fmt.Sprintf("Wrote %s", result.Output))

	fmt.Printf("  format:  %s\n", describeFormat(result.Format, result.Encrypted))
	fmt.Printf("  entries: %d\n", result.Entries)
	fmt.Printf("  size:    %s -> %s (%s)\n", formatSize(result.InputSize), formatSize(result.Size), ratio(result.Size, result.InputSize))
	if result.RecordID != "" {
		env.Log.Infof("recorded as %s", result.RecordID)
	}

	if !result.Encrypted || source != SourcePrompt {
		return
	}
	if opts.SavePassword {
		if err := saveToKeyring(result.Output, password); err != nil {
			env.Log.Warnf("failed to save password: %v", err)
			return
		}
		fmt.Println("Password saved to keyring")
		return
	}
	env.OfferToSavePassword(result.Output, password)
}

func describeFormat(f archive.Format, encrypted bool) string {
	if encrypted {
		return string(f) + " (encrypted)"
	}
	return string(f)
}
