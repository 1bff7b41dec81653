package cmd

import (
	"context"
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/crypto"
	"github.com/Murchiz/Gpucompress/internal/keyring"
)

func saveToKeyring(archivePath string, password []byte) error {
	return keyring.SavePassword(archivePath, string(password))
}

// KeyringSave stores an archive's password in the OS keyring after
// checking that it opens the archive.
func KeyringSave(ctx context.Context, env *Env, archivePath string) {
	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	a := env.Archiver(false)
	if _, _, err := a.List(ctx, archivePath, "", password); err != nil {
		HandleError(err)
	}

	if err := saveToKeyring(archivePath, password); err != nil {
		HandleError(fmt.Errorf("failed to save to keyring: %w", err))
	}
	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes an archive's password from the OS keyring
func KeyringDelete(archivePath string) {
	if err := keyring.DeletePassword(archivePath); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}
	fmt.Println("Password removed from keyring")
}

// KeyringStatus reports whether a password is stored for an archive
func KeyringStatus(archivePath string) {
	if keyring.HasPassword(archivePath) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
