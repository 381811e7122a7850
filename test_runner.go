//go:build ignore

// Run with: go run test_runner.go
package main

import (
	"fmt"
	"os"
	"os/exec"
)

// racePackages exercise concurrent writers and are also run under -race.
var racePackages = []string{"./internal/links/...", "./internal/analytics/...", "./internal/sqlstore/...", "./internal/db/..."}

func step(name string, args ...string) error {
	fmt.Printf("\n== %s: go %v\n", name, args)
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func main() {
	fmt.Println("Running all tests for vlink...")

	if err := step("vet", "vet", "./..."); err != nil {
		fmt.Printf("Vet failed: %v\n", err)
		os.Exit(1)
	}

	if err := step("tests", "test", "-cover", "./..."); err != nil {
		fmt.Printf("Tests failed: %v\n", err)
		os.Exit(1)
	}

	raceArgs := append([]string{"test", "-race", "-count=1"}, racePackages...)
	if err := step("race", raceArgs...); err != nil {
		fmt.Printf("Race tests failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAll tests passed!")

	// Don't exit on benchmark failure
	if err := step("benchmarks", "test", "-run=^$", "-bench=.", "-benchmem", "./internal/shortener/...", "./internal/qrcode/...", "./internal/analytics/..."); err != nil {
		fmt.Printf("Benchmarks failed: %v\n", err)
	}

	fmt.Println("\nTest run complete!")
}
