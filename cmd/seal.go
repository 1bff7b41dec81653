package cmd

import (
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/crypto"
)

// Seal wraps an existing file in the password envelope. The output
// defaults to the input name with .enc appended.
func Seal(env *Env, in, out string, force bool) {
	if out == "" {
		out = in + archive.EncryptedSuffix
	}

	password, source, err := NewPassword()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	stop := startSpinner("Sealing...", env.Log)
	if err := core.SealFile(in, out, password, force); err != nil {
		stop("")
		HandleError(err)
	}
	stop(fmt.Sprintf("Sealed %s -> %s", in, out))

	if source == SourcePrompt {
		env.OfferToSavePassword(out, password)
	}
}
