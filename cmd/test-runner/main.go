// Package main - test-runner
// Runs the desk drills against an in-memory store and exits non-zero on failure.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
	"github.com/MRamiBalles/LodgingDesk/server/test"
)

func main() {
	fmt.Println("LODGING DESK - DRILL SUITE")
	fmt.Println(strings.Repeat("=", 60))

	drills := test.NewDeskDrills(logger.NewLogger())
	drills.RunTest(context.Background())

	passed, failed := 0, 0
	for _, r := range drills.GetResults() {
		status := "PASS"
		if r.Passed {
			passed++
		} else {
			failed++
			status = "FAIL"
		}
		fmt.Printf("\n[%s] %s\n", status, r.ScenarioName)
		fmt.Printf("   Input:    %s\n", r.Input)
		fmt.Printf("   Expected: %s\n", r.Expected)
		fmt.Printf("   Actual:   %s\n", r.Actual)
		if r.Reason != "" {
			fmt.Printf("   Reason:   %s\n", r.Reason)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 {
		os.Exit(1)
	}
}
