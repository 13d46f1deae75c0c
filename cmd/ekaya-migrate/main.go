package main

import (
	"os"

	_ "github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource/all"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, defaultProvider).Execute(); err != nil {
		os.Exit(1)
	}
}
