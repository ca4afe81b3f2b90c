// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"solstice/cmd"
	"solstice/internal/log"
	"solstice/pkg/build"
)

// main runs in two phases:
//
// 1. Startup: load build information. Development builds carry no ldflags
// and fall back to default build information.
//
// 2. Command: parse the command line, load the configuration and run the
// selected command. Results go to stdout and diagnostics to stderr; any
// error ends the process with a non-zero status.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v; using development build information", err)
	}

	if err := cmd.Execute(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}
