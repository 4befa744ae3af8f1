package main

import (
	"fmt"
	"os"

	"github.com/loykin/stagehand/internal/errdefs"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(errdefs.ExitCode(err))
	}
}
