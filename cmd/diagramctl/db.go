package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/diagram-service/internal/config"
	"github.com/iliyamo/diagram-service/internal/database"
	"github.com/iliyamo/diagram-service/internal/repository"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Database diagnostics"}
	cmd.AddCommand(newDBPingCmd())
	cmd.AddCommand(newDBCountCmd())
	return cmd
}

// openRepo connects with the same environment the server reads.
func openRepo() (*repository.DiagramRepo, func(), error) {
	cfg := config.Load()
	db, err := database.Open(database.Config{
		User:        cfg.DBUser,
		Password:    cfg.DBPass,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		TLS:         cfg.DBTLS,
		DialTimeout: cfg.DBDial,
	})
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewDiagramRepo(db, cfg.DBTable)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, func() { _ = db.Close() }, nil
}

func newDBPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the database answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB()
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			start := time.Now()
			if err := repo.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok (%s)\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newDBCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of rows in the diagram table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB()
			n, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", repo.Table(), n)
			return nil
		},
	}
}
