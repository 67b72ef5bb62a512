// Command massattach discovers traceable kernel functions and mass-attaches
// a compiled fentry/fexit tracing template to every function that survives
// the configured allow/deny policy.
package main

import (
	"fmt"
	"os"

	"massattach/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
