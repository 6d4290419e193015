// Package testutil holds helpers shared by package tests.
package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger prefixed with the running test's name so
// interleaved output from parallel tests stays attributable.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(os.Stderr, "["+t.Name()+"] ", log.LstdFlags)
}
