package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"codetect/internal/store"
)

func registerRepoCommand() *cli.Command {
	return &cli.Command{
		Name:  "register-repo",
		Usage: "register a local or remote git repository for ingestion",
		Flags: []cli.Flag{
			dbFlag,
			&cli.StringFlag{Name: "name", Required: true, Usage: "unique repo name"},
			&cli.StringFlag{Name: "path", Required: true, Usage: "local working copy path (cloned here if empty/absent and --remote is set)"},
			&cli.StringFlag{Name: "remote", Usage: "remote URL to clone/fetch from"},
			&cli.StringFlag{Name: "branch", Usage: "default branch to walk (falls back to HEAD)"},
			&cli.StringFlag{Name: "fork-of", Usage: "upstream remote URL; commits reachable from its merge-base are excluded"},
			&cli.StringFlag{Name: "author", Usage: "restrict ingestion to commits authored by this email"},
			&cli.StringFlag{Name: "exclude", Usage: "comma-separated path-prefix exclusions, merged with the built-in defaults"},
			&cli.BoolFlag{Name: "embed", Usage: "enable dense-vector embedding backfill for this repo"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var excludes []string
			if e := cmd.String("exclude"); e != "" {
				for _, p := range strings.Split(e, ",") {
					if p = strings.TrimSpace(p); p != "" {
						excludes = append(excludes, p)
					}
				}
			}

			repo, err := st.AddRepo(ctx, store.RepoInput{
				Name:            cmd.String("name"),
				Path:            cmd.String("path"),
				RemoteURL:       cmd.String("remote"),
				DefaultBranch:   cmd.String("branch"),
				ForkOf:          cmd.String("fork-of"),
				AuthorFilter:    cmd.String("author"),
				ExcludePrefixes: excludes,
				EmbedEnabled:    cmd.Bool("embed"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("registered repo %q (id=%d)\n", repo.Name, repo.ID)
			return nil
		},
	}
}

func removeRepoCommand() *cli.Command {
	return &cli.Command{
		Name:  "remove-repo",
		Usage: "unregister a repo and delete all of its indexed data",
		Flags: []cli.Flag{
			dbFlag,
			&cli.StringFlag{Name: "name", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.RemoveRepo(ctx, cmd.String("name")); err != nil {
				return err
			}
			fmt.Printf("removed repo %q\n", cmd.String("name"))
			return nil
		},
	}
}
