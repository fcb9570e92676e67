package main

import (
	"fmt"
	"os"

	"github.com/avoran/casetree/internal/cli"
	"github.com/avoran/casetree/internal/config"
	"github.com/avoran/casetree/internal/db"
	"github.com/avoran/casetree/internal/repository"
	"github.com/avoran/casetree/internal/service"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories and the unit of work for transactional operations.
	nodeRepo := repository.NewSQLiteTreeNodeRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	app := &cli.App{
		Tree:   service.NewTreeService(nodeRepo, uow),
		Search: service.NewSearchService(nodeRepo, cfg.PageSize),
	}

	// Detect interactive terminal for the browse entrypoint.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}
