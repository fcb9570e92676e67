package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/avoran/casetree/internal/cli/formatter"
	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// countChangedFlags reports how many of the named flags were set.
func countChangedFlags(flags *pflag.FlagSet, names ...string) int {
	n := 0
	for _, name := range names {
		if flags.Changed(name) {
			n++
		}
	}
	return n
}

func newNodeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage tree nodes",
	}

	cmd.AddCommand(
		newNodeAddCmd(app),
		newNodeInspectCmd(app),
		newNodeRenameCmd(app),
		newNodeUpdateCmd(app),
		newNodeMoveCmd(app),
		newNodeRemoveCmd(app),
	)

	return cmd
}

// parseNodeID parses a positional node ID argument.
func parseNodeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid node ID %q: expected a positive integer", arg)
	}
	return id, nil
}

func newNodeAddCmd(app *App) *cobra.Command {
	var name, kind, createdBy string
	var parentID int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new folder or test case",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := contract.CreateTreeNodeRequest{
				Name:      name,
				Type:      domain.NodeKind(kind),
				CreatedBy: createdBy,
			}
			if cmd.Flags().Changed("parent") {
				req.ParentID = &parentID
			}

			n, err := app.Tree.CreateNode(context.Background(), req)
			if err != nil {
				return err
			}

			fmt.Printf("Created %s %s (#%d)\n", n.Kind, n.Name, n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Node name")
	cmd.Flags().StringVar(&kind, "type", "", "Node type (folder|testcase)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent folder ID (omit for root level)")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "Author recorded on the node")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newNodeInspectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect ID",
		Short: "Show node details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			n, err := app.Tree.GetNode(ctx, id)
			if err != nil {
				return err
			}

			var b strings.Builder

			b.WriteString(fmt.Sprintf("%s  %s\n\n", formatter.Bold(n.Name), formatter.Dim(string(n.Kind))))
			b.WriteString(fmt.Sprintf("  %s  #%d\n", formatter.Dim("ID     "), n.ID))
			if n.ParentID != nil {
				b.WriteString(fmt.Sprintf("  %s  #%d\n", formatter.Dim("PARENT "), *n.ParentID))
			} else {
				b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("PARENT "), formatter.Dim("root")))
			}
			b.WriteString(fmt.Sprintf("  %s  %d\n", formatter.Dim("ORDER  "), n.SortOrder))
			if n.IsFolder() {
				b.WriteString(fmt.Sprintf("  %s  %d\n", formatter.Dim("ITEMS  "), n.ChildCount))
			}
			if n.CreatedBy != "" {
				b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("AUTHOR "), n.CreatedBy))
			}
			b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("UPDATED"), n.UpdatedAt.Local().Format("Jan 2, 2006 15:04")))

			// List direct children.
			if n.IsFolder() {
				page, err := app.Search.Search(ctx, contract.TreeSearchRequest{ParentID: &n.ID})
				if err != nil {
					return err
				}
				if len(page.Nodes) > 0 {
					b.WriteString("\n")
					b.WriteString(formatter.Header("Children"))
					b.WriteString("\n")
					headers := []string{"ID", "NAME", "TYPE", "ORDER"}
					rows := make([][]string, 0, len(page.Nodes))
					for _, c := range page.Nodes {
						rows = append(rows, []string{
							fmt.Sprintf("#%d", c.ID),
							c.Name,
							string(c.Kind),
							fmt.Sprintf("%d", c.SortOrder),
						})
					}
					b.WriteString(formatter.RenderTable(headers, rows))
				}
			}

			fmt.Print(b.String())
			return nil
		},
	}
	return cmd
}

func newNodeRenameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			n, err := app.Tree.RenameNode(context.Background(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renamed #%d to %s\n", n.ID, n.Name)
			return nil
		},
	}
	return cmd
}

func newNodeUpdateCmd(app *App) *cobra.Command {
	var name string
	var parentID int64
	var order int

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a node's name, parent, or position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}

			var req contract.UpdateTreeNodeRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("parent") {
				req.ParentID = &parentID
			}
			if cmd.Flags().Changed("order") {
				req.SortOrder = &order
			}

			n, err := app.Tree.UpdateNode(context.Background(), id, req)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s (#%d)\n", n.Name, n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "New parent folder ID")
	cmd.Flags().IntVar(&order, "order", 0, "New sort order among siblings")

	return cmd
}

func newNodeMoveCmd(app *App) *cobra.Command {
	var before, after, into int64

	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Move a node relative to another node",
		Long: `Move a node relative to another node.

Exactly one placement flag must be given:
  --before ID   place as the sibling immediately before ID
  --after ID    place as the sibling immediately after ID
  --into ID     append as the last child of folder ID`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}

			if countChangedFlags(cmd.Flags(), "before", "after", "into") != 1 {
				return fmt.Errorf("exactly one of --before, --after, --into is required")
			}

			req := contract.DragDropRequest{DraggedNodeID: id}
			switch {
			case cmd.Flags().Changed("before"):
				pos := domain.PositionBefore
				req.TargetNodeID = before
				req.DropType = domain.DropReorder
				req.Position = &pos
			case cmd.Flags().Changed("after"):
				pos := domain.PositionAfter
				req.TargetNodeID = after
				req.DropType = domain.DropReorder
				req.Position = &pos
			default:
				req.TargetNodeID = into
				req.DropType = domain.DropHierarchy
			}

			res, err := app.Tree.MoveNode(context.Background(), req)
			if res != nil && !res.Success {
				fmt.Println(formatter.StyleRed.Render("✗ " + res.Message))
				return err
			}
			if err != nil {
				return err
			}

			fmt.Println(formatter.StyleGreen.Render("✓ " + res.Message))
			if res.Data != nil {
				old, now := res.Data.OldPosition, res.Data.NewPosition
				fmt.Printf("  %s %s → %s\n", formatter.Dim("position"), describePosition(old), describePosition(now))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&before, "before", 0, "Place before this sibling")
	cmd.Flags().Int64Var(&after, "after", 0, "Place after this sibling")
	cmd.Flags().Int64Var(&into, "into", 0, "Append into this folder")

	return cmd
}

func describePosition(p contract.NodePosition) string {
	if p.ParentID == nil {
		return fmt.Sprintf("root[%d]", p.SortOrder)
	}
	return fmt.Sprintf("#%d[%d]", *p.ParentID, p.SortOrder)
}

func newNodeRemoveCmd(app *App) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			if err := app.Tree.DeleteNode(context.Background(), id, cascade); err != nil {
				return err
			}
			fmt.Printf("Deleted #%d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "Delete a folder together with everything inside it")

	return cmd
}
