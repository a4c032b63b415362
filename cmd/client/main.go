package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/carvault/internal/client/cli"
	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/common"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		switch {
		case errors.Is(err, common.ErrUnknownNetwork):
			fmt.Fprintf(os.Stderr, "fatal: %v (set BACKEND to %q or %q)\n", err, common.NetworkLocal, common.NetworkLive)
		case errors.Is(err, common.ErrMissingRootKey):
			fmt.Fprintf(os.Stderr, "fatal: %v (set --live-root-key or %s)\n", err, config.EnvRootKey)
		default:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}

}
