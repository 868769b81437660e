// Command auroraview is a thin reference host that exercises the
// library standalone, outside of any DCC application's own event loop.
package main

import (
	"fmt"
	"os"

	"github.com/aurora-view/auroraview/cmd/auroraview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
