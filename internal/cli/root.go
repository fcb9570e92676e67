package cli

import (
	"github.com/avoran/casetree/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Tree   service.TreeService
	Search service.SearchService

	// IsInteractive reports whether stdout is a terminal; non-interactive
	// runs skip the browse TUI and confirmation prompts.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "casetree" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "casetree",
		Short: "Test case organizer with a drag-and-drop tree",
	}

	root.AddCommand(
		newNodeCmd(app),
		newTreeCmd(app),
		newSearchCmd(app),
		newBrowseCmd(app),
	)

	return root
}
