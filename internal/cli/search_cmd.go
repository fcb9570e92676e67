package cli

import (
	"context"
	"fmt"

	"github.com/avoran/casetree/internal/cli/formatter"
	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/domain"
	"github.com/spf13/cobra"
)

func newSearchCmd(app *App) *cobra.Command {
	var kind string
	var parentID int64
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search nodes by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := contract.TreeSearchRequest{
				Limit:  limit,
				Offset: offset,
			}
			if len(args) == 1 {
				req.Query = args[0]
			}
			if cmd.Flags().Changed("type") {
				k := domain.NodeKind(kind)
				if !k.Valid() {
					return fmt.Errorf("invalid node type %q: expected folder or testcase", kind)
				}
				req.Type = &k
			}
			if cmd.Flags().Changed("parent") {
				req.ParentID = &parentID
			}

			page, err := app.Search.Search(context.Background(), req)
			if err != nil {
				return err
			}

			if len(page.Nodes) == 0 {
				fmt.Println(formatter.Dim("No matching nodes."))
				return nil
			}

			headers := []string{"ID", "NAME", "TYPE", "PARENT", "ORDER"}
			rows := make([][]string, 0, len(page.Nodes))
			for _, n := range page.Nodes {
				parent := "root"
				if n.ParentID != nil {
					parent = fmt.Sprintf("#%d", *n.ParentID)
				}
				rows = append(rows, []string{
					fmt.Sprintf("#%d", n.ID),
					n.Name,
					string(n.Kind),
					parent,
					fmt.Sprintf("%d", n.SortOrder),
				})
			}
			fmt.Print(formatter.RenderTable(headers, rows))

			summary := fmt.Sprintf("Showing %d–%d of %d", offset+1, offset+len(page.Nodes), page.Total)
			if page.HasMore {
				summary += " (more available, use --offset)"
			}
			fmt.Println(formatter.Dim(summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Filter by node type (folder|testcase)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Filter to children of this folder")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (0 uses the default)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of matches to skip")

	return cmd
}
