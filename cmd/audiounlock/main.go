// Command audiounlock decrypts NCM and QMC audio containers.
//
// Usage:
//
//	audiounlock [flags] [inputs...]
//	audiounlock -n a.ncm -n b.ncm -q c.qmcflac -w 4 -o out/
//	audiounlock watch ~/Downloads -o ~/Music
//	audiounlock serve --listen 127.0.0.1:8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/simonhull/audiounlock/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
