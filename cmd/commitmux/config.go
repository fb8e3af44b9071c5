package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "read or write persisted operator config (embed.model, embed.endpoint)",
		Commands: []*cli.Command{
			configGetCommand(),
			configSetCommand(),
		},
	}
}

func configGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print a config key's value",
		ArgsUsage: "<key>",
		Flags:     []cli.Flag{dbFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key := cmd.Args().First()
			if key == "" {
				return fmt.Errorf("usage: commitmux config get <key>")
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			value, ok, err := st.GetConfig(ctx, key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("%s is unset\n", key)
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
}

func configSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "set a config key's value",
		ArgsUsage: "<key> <value>",
		Flags:     []cli.Flag{dbFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 2 {
				return fmt.Errorf("usage: commitmux config set <key> <value>")
			}
			if strings.TrimSpace(args[1]) == "" {
				return fmt.Errorf("config value for %q cannot be empty", args[0])
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetConfig(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("set %s\n", args[0])
			return nil
		},
	}
}
