package config

import (
	"bytes"
	"testing"
)

func TestExitfWritesMessageAndExitsWithOne(t *testing.T) {
	var out bytes.Buffer
	code := -1
	prevExit, prevStderr := exit, stderr
	exit = func(c int) { code = c }
	stderr = &out
	t.Cleanup(func() {
		exit, stderr = prevExit, prevStderr
	})

	Exitf("parse flags: %s", "bad duration")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := out.String(); got != "parse flags: bad duration\n" {
		t.Fatalf("stderr = %q, want %q", got, "parse flags: bad duration\n")
	}
}
