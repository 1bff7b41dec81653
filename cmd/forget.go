package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Murchiz/Gpucompress/internal/keyring"
	"github.com/Murchiz/Gpucompress/internal/storage"
)

// resolveRecord looks ref up as an ID, an ID prefix or an archive path,
// trying the absolute form of a relative path as well.
func resolveRecord(catalog *storage.Catalog, ref string) (*storage.Record, error) {
	rec, err := catalog.Resolve(ref)
	if err == nil || !errors.Is(err, storage.ErrNotFound) {
		return rec, err
	}
	abs, absErr := filepath.Abs(ref)
	if absErr != nil || abs == ref {
		return nil, err
	}
	if rec, absErr := catalog.Resolve(abs); absErr == nil {
		return rec, nil
	}
	return nil, err
}

// Forget removes archives from the catalog. The archive files are left
// alone; stored keyring passwords are removed unless keepPassword is set.
func Forget(env *Env, refs []string, keepPassword bool) {
	if len(refs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: forget requires at least one archive path or record id\n")
		fmt.Fprintf(os.Stderr, "Usage: gpucompress forget <archive|id> [archive|id...]\n")
		os.Exit(1)
	}

	catalog := env.MustCatalog()
	defer env.Close()

	failed := false
	for _, ref := range refs {
		rec, err := resolveRecord(catalog, ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			failed = true
			continue
		}
		if err := catalog.Delete(rec.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			failed = true
			continue
		}
		fmt.Printf("Forgot %s (%s)\n", rec.Path, shortID(rec.ID))

		if !keepPassword && keyring.HasPassword(rec.Path) {
			if err := keyring.DeletePassword(rec.Path); err != nil {
				env.Log.Warnf("failed to remove keyring password for %s: %v", rec.Path, err)
			} else {
				env.Log.Infof("removed keyring password for %s", rec.Path)
			}
		}
	}
	if failed {
		env.Close()
		os.Exit(1)
	}
}
