// Package main is the entry point for the regis CLI.
package main

import (
	"os"

	"github.com/jnury/regis/cmd/regis/app"
	"github.com/jnury/regis/pkg/logger"
)

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
