package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"codetect/internal/mcp"
	"codetect/internal/tools"
)

const (
	serverName    = "commitmux"
	serverVersion = "0.1.0"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the MCP server over stdio",
		Flags: []cli.Flag{dbFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			server := mcp.NewServer(serverName, serverVersion)
			tools.RegisterAll(server, tools.Deps{Store: st})

			if err := server.Run(ctx); err != nil {
				// A SIGINT/SIGTERM-cancelled context is a clean shutdown,
				// not a failure; anything else (a stdin read error) is not.
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			return nil
		},
	}
}
