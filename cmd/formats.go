package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Murchiz/Gpucompress/internal/archive"
)

// Formats lists the codecs and what each can do with the current
// accelerator.
func Formats(env *Env) {
	reg, _ := env.Registry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FORMAT\tEXTENSION\tPASSWORD\tSTATUS")
	for _, f := range reg.Formats() {
		password := "envelope (.enc)"
		if reg.NativePassword(f) {
			password = "native"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f, f.Extension(), password, formatStatus(reg, f))
	}
	w.Flush()
}

// formatStatus probes a codec with an empty archive.
func formatStatus(reg *archive.Registry, f archive.Format) string {
	codec, err := reg.Lookup(f)
	if err != nil {
		return err.Error()
	}
	_, err = codec.Compress(nil, nil)
	switch {
	case err == nil:
		return "read/write"
	case errors.Is(err, archive.ErrNotImplemented):
		return "read-only"
	case errors.Is(err, archive.ErrAcceleratorRequired):
		return "needs accelerator"
	default:
		return err.Error()
	}
}
