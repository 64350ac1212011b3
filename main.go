// Package main is the entry point for the koi application.
package main

import (
	"github.com/samber/lo"

	"github.com/koi-cli/koi/cmd"
	"github.com/koi-cli/koi/config"
	"github.com/koi-cli/koi/internal/cache"
	"github.com/koi-cli/koi/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Background cache maintenance. CollectGarbage spawns its own goroutine.
	cache.CollectGarbage()

	cmd.Execute()
}
