package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShivpalBellway/DevBhakti/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		switch args[0] {
		case "up":
			return db.MigrateUp(a.db.DB, a.logger)
		case "down":
			return db.MigrateDown(a.db.DB, a.logger)
		case "status":
			return db.MigrateStatus(a.db.DB, a.logger)
		}
		return fmt.Errorf("unknown migrate action %q", args[0])
	},
}
