// Command slabrender composites a stone slab texture onto the masked region
// of a photo.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roboco-io/slabrender/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
