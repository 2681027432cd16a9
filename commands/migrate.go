package commands

import (
	"todo-server/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		database, err := db.Connect(cfg, logger)
		if err != nil {
			return err
		}
		return db.Migrate(database, logger)
	},
}
