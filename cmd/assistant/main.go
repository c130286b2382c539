// Package main provides the speech-companion terminal assistant.
//
// Usage:
//
//	speech-companion [--config path] [--env path] [command]
//
// Commands:
//
//	run      - Start the live assistant (default)
//	devices  - List audio input devices
//	history  - Print rows saved by earlier sessions
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
