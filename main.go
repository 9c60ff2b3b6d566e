package main

import (
	"fmt"
	"os"

	"github.com/kestrelhq/kestrel/internal/cmd"
	"github.com/kestrelhq/kestrel/internal/kerrors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if kerrors.IsUserFacing(err) {
			fmt.Fprintf(os.Stderr, "kestrel: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "kestrel: internal error: %v\n", err)
		}
		os.Exit(1)
	}
}
