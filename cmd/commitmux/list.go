package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func listReposCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-repos",
		Usage: "list registered repos and their sync state",
		Flags: []cli.Flag{dbFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			repos, err := st.ListRepos(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Println("no repos registered")
				return nil
			}

			for _, r := range repos {
				count, err := st.CountCommitsForRepo(ctx, r.ID)
				if err != nil {
					return err
				}

				synced := "never synced"
				if state, ok, err := st.GetIngestState(ctx, r.ID); err == nil && ok {
					synced = humanize.Time(time.Unix(state.LastSyncedAt, 0))
				}

				embed := "off"
				if r.EmbedEnabled {
					embed = "on"
				}

				fmt.Printf("%-24s %6d commits  synced %-16s embed=%s\n", r.Name, count, synced, embed)
			}
			return nil
		},
	}
}
