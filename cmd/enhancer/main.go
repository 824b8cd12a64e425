// Package main provides the enhancer service binary. It loads the YAML
// configuration, wires the enhancement backends behind the mode coordinator
// and serves the HTTP API until interrupted.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
