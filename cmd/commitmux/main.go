package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"codetect/internal/logging"
)

func main() {
	cmd := &cli.Command{
		Name:  "commitmux",
		Usage: "retrieval engine over git commit history, exposed to agents over MCP",
		Commands: []*cli.Command{
			registerRepoCommand(),
			removeRepoCommand(),
			listReposCommand(),
			syncCommand(),
			serveCommand(),
			configCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logging.Default("commitmux").Error(err.Error())
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
