// Command claimsctl runs billing reports and maintenance tasks without the API server.
package main

import (
	"os"
	_ "time/tzdata"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
