package cmd

import (
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/crypto"
	"github.com/Murchiz/Gpucompress/internal/keyring"
)

// Rekey changes the password of an enveloped archive
func Rekey(env *Env, archivePath string) {
	a := env.Archiver(false)

	current, _, err := env.CurrentPassword("Enter current password: ", archivePath)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(current)

	fmt.Println("Enter new password:")
	next, err := core.ReadPasswordConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(next)

	stop := startSpinner("Re-encrypting...", env.Log)
	if err := a.Rekey(archivePath, current, next); err != nil {
		stop("")
		HandleError(err)
	}
	stop("Password changed successfully")

	if keyring.HasPassword(archivePath) {
		if err := saveToKeyring(archivePath, next); err != nil {
			env.Log.Warnf("failed to update keyring: %v", err)
		} else {
			fmt.Println("Keyring updated")
		}
	}
}
