// Package main is the entry point for the ASG request-based autoscaler agent.
package main

import (
	"os"

	"github.com/softcane/asgscaler/cmd/agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
