package main

import (
	"os"
	"testing"
)

var osExit = os.Exit

func withArgs(t *testing.T, args []string, fn func()) {
	t.Helper()
	prev := os.Args
	os.Args = args
	defer func() { os.Args = prev }()
	fn()
}
