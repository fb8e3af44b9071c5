package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"codetect/internal/coordinator"
	"codetect/internal/logging"
	"codetect/internal/store"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "sync one repo (or every registered repo) and backfill embeddings for repos with embed enabled",
		Flags: []cli.Flag{
			dbFlag,
			&cli.StringFlag{Name: "name", Usage: "sync only this repo; omit to sync every registered repo"},
			&cli.BoolFlag{Name: "embed-only", Usage: "skip the git walk, only backfill embeddings for already-indexed commits"},
			&cli.BoolFlag{Name: "watch", Usage: "after the initial sync, keep running and resync whenever a repo's ref state changes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var repos []store.Repo
			if name := cmd.String("name"); name != "" {
				repo, err := st.GetRepoByName(ctx, name)
				if err != nil {
					return err
				}
				repos = []store.Repo{repo}
			} else {
				repos, err = st.ListRepos(ctx)
				if err != nil {
					return err
				}
			}

			c := coordinator.New(st, logging.Default("coordinator"))
			summary := c.Run(ctx, repos, cmd.Bool("embed-only"))

			printSyncSummary(summary)
			if summary.Failed() {
				return fmt.Errorf("sync run %s completed with errors", summary.RunID)
			}

			if cmd.Bool("watch") {
				return c.Watch(ctx)
			}
			return nil
		},
	}
}

func printSyncSummary(summary coordinator.RunSummary) {
	fmt.Printf("run %s finished in %s\n", summary.RunID, humanize.RelTime(summary.Started, summary.Started.Add(summary.Duration), "", ""))
	for _, r := range summary.Repos {
		if r.Err != nil {
			fmt.Printf("  %-24s FAILED: %s\n", r.Repo, r.Err)
			continue
		}
		fmt.Printf("  %-24s indexed=%d already=%d filtered=%d", r.Repo,
			r.Ingest.CommitsIndexed, r.Ingest.CommitsAlreadyIndexed, r.Ingest.CommitsFiltered)
		if r.Embed != nil {
			fmt.Printf("  embedded=%d skipped=%d failed=%d", r.Embed.Embedded, r.Embed.Skipped, r.Embed.Failed)
		}
		fmt.Println()
	}
}
