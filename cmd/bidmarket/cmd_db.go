package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/bidmarket/database/seeders"
	"github.com/shashiranjanraj/bidmarket/internal/server"
	"github.com/shashiranjanraj/bidmarket/pkg/migration"
)

// bidmarket migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := server.BootDB()
		if err != nil {
			return err
		}
		n, err := migration.New(db, os.Stdout).Run()
		if err != nil {
			return err
		}
		fmt.Printf("Migrated %d migration(s).\n", n)
		return nil
	},
}

// bidmarket migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := server.BootDB()
		if err != nil {
			return err
		}
		n, err := migration.New(db, os.Stdout).Rollback()
		if err != nil {
			return err
		}
		fmt.Printf("Rolled back %d migration(s).\n", n)
		return nil
	},
}

// bidmarket migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show whether each migration has run",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := server.BootDB()
		if err != nil {
			return err
		}
		states, err := migration.New(db, nil).Status()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RAN\tBATCH\tMIGRATION")
		for _, s := range states {
			ran, batch := "no", "-"
			if s.Ran {
				ran, batch = "yes", fmt.Sprint(s.Batch)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, s.Name)
		}
		return w.Flush()
	},
}

// bidmarket seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := server.BootDB()
		if err != nil {
			return err
		}
		return seeders.RunAll(db, os.Stdout)
	},
}
