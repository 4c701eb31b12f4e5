// Command csvclean profiles and cleans messy CSV files from the command line
// or over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	// Register the SQL export backends with the storage factory.
	_ "csvclean/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(exitCode(err))
	}
}
