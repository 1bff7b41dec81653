package cmd

import (
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/core"
)

// Unseal removes the password envelope from a sealed file. The output
// defaults to the input name without .enc.
func Unseal(env *Env, in, out string, force bool) {
	if out == "" {
		out = core.UnsealedName(in)
	}

	err := env.WithPassword(in, true, func(password []byte) error {
		return core.UnsealFile(in, out, password, force)
	})
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("Unsealed %s -> %s\n", in, out)
}
