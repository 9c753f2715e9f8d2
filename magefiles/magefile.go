// Package main holds the shoplist build targets.
//
//	mage build   Compile bin/shoplist
//	mage test    Run all tests
//	mage race    Run the catalog and store tests with the race detector
//	mage lint    Run golangci-lint
//	mage clean   Remove bin/
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

// Build compiles the shoplist binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", filepath.Join(binaryDir, "shoplist"), "./cmd/shoplist")
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs the concurrent packages under the race detector.
func Race() error {
	return sh.RunV("go", "test", "-race", "./internal/catalog/...", "./internal/sqlite/...")
}

// Lint runs golangci-lint after the tests pass.
func Lint() error {
	mg.Deps(Test)
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
