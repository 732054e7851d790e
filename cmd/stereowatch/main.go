package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted by the user; nothing worth printing.
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "stereowatch:", err)
		os.Exit(1)
	}
}
