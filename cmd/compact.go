package cmd

import (
	"fmt"
	"os"
)

// Compact rewrites the catalog to reclaim unused space
func Compact(env *Env) {
	catalog := env.MustCatalog()
	defer env.Close()

	info, err := os.Stat(catalog.Path())
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := catalog.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(catalog.Path())
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
