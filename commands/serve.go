package commands

import (
	"os"
	"os/signal"
	"syscall"

	"todo-server/db"
	"todo-server/repositories"
	"todo-server/repositories/memory"
	"todo-server/server"

	"github.com/spf13/cobra"
)

var (
	port        string
	inMemory    bool
	skipMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long:  `Connect to Postgres, apply migrations and serve the web application until interrupted.`,
	RunE:  runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&inMemory, "memory", false, "Keep all data in process memory instead of Postgres")
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not run database migrations on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	var repos repositories.Set
	if inMemory {
		logger.Warn("using in-memory storage; data is lost on exit")
		repos = memory.NewRepositories()
	} else {
		if cfg.SessionSecretRandom {
			logger.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
		}
		database, err := db.Connect(cfg, logger)
		if err != nil {
			return err
		}
		if !skipMigrate {
			if err := db.Migrate(database, logger); err != nil {
				return err
			}
		}
		repos = repositories.NewPgRepositories(database)
	}

	srv, err := server.NewServer(cfg, repos, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}
