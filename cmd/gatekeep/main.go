// Package main is the single-binary entrypoint for Gatekeep.
package main

import "github.com/gatekeep-net/gatekeep/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
