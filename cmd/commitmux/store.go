package main

import (
	"github.com/urfave/cli/v3"

	"codetect/internal/config"
	"codetect/internal/logging"
	"codetect/internal/store"
)

// openStore resolves the database path/driver from COMMITMUX_DB and the
// "--db" flag (flag wins when set) and opens the store, loading
// sqlite-vec via the mattn driver.
func openStore(cmd *cli.Command) (*store.Store, error) {
	dbCfg := config.LoadDatabaseConfigFromEnv()
	if path := cmd.String("db"); path != "" {
		dbCfg.Path = path
	}

	return store.Open(dbCfg.ToDBConfig(), store.Options{
		Driver:             dbCfg.Driver,
		Logger:             logging.Default("store"),
		EmbeddingDimension: dbCfg.VectorDimensions,
	})
}

var dbFlag = &cli.StringFlag{
	Name:  "db",
	Usage: "path to the commitmux sqlite database (default: COMMITMUX_DB or ~/.commitmux/db.sqlite3)",
}
