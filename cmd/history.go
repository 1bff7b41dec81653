package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// History lists the archives recorded in the catalog, oldest first.
func History(env *Env, showEntries bool) {
	catalog := env.MustCatalog()
	defer env.Close()

	records, err := catalog.List()
	if err != nil {
		HandleError(err)
	}
	if len(records) == 0 {
		fmt.Println("No archives recorded")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFORMAT\tSIZE\tENTRIES\tCREATED\tPATH")
	for _, rec := range records {
		format := rec.Format
		if rec.Encrypted {
			format += "+enc"
		}
		created := units.HumanDuration(time.Since(rec.Created)) + " ago"
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(rec.ID), format, formatSize(rec.Size), len(rec.Entries), created, rec.Path)
		if _, err := os.Stat(rec.Path); err != nil {
			fmt.Fprintf(w, "\t\t\t\t\t(missing on disk)\n")
		}
		if showEntries {
			for _, e := range rec.Entries {
				fmt.Fprintf(w, "\t\t%s\t\t\t  %s\n", formatSize(e.Size), e.Name)
			}
		}
	}
	w.Flush()

	if modified, err := catalog.Modified(); err == nil {
		fmt.Printf("\n%d archives, catalog updated %s ago\n", len(records), units.HumanDuration(time.Since(modified)))
	} else {
		env.Log.Debugf("catalog modified time: %v", err)
	}
}
