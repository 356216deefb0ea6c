package config

import (
	"fmt"
	"io"
	"os"
)

// exit and stderr are swapped in tests.
var (
	exit   func(int) = os.Exit
	stderr io.Writer = os.Stderr
)

// Exitf reports a fatal startup error on stderr and exits with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(1)
}
