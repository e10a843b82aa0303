// Package main is the single-binary entrypoint for netcrawl.
package main

import "github.com/netcrawl/netcrawl/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
