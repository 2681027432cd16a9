package commands

import (
	"fmt"
	"os"

	"todo-server/confs"
	"todo-server/logging"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "todo-server",
	Short: "Multi-user to-do list web application",
	Long: `A server-rendered to-do list. Users register, sign in and manage
their own tasks. Running without a subcommand is the same as "serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and builds the process logger from it.
func setup(cmd *cobra.Command) (*confs.Config, *log.Logger, error) {
	cfg, err := confs.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return cfg, logger, nil
}
