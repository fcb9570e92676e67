package cli

import (
	"context"
	"fmt"

	"github.com/avoran/casetree/internal/cli/formatter"
	"github.com/avoran/casetree/internal/domain"
	"github.com/spf13/cobra"
)

func newTreeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the full hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := collectTreeItems(context.Background(), app)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println(formatter.Dim("The tree is empty."))
				return nil
			}
			fmt.Print(formatter.RenderTree(items))
			return nil
		},
	}
	return cmd
}

// collectTreeItems walks the hierarchy depth-first and converts it into
// display items, marking the last sibling at each level and attaching a
// child-count badge to folders.
func collectTreeItems(ctx context.Context, app *App) ([]formatter.TreeItem, error) {
	var (
		items  []formatter.TreeItem
		depths []int
	)
	err := app.Search.Walk(ctx, func(n *domain.TreeNode, depth int) error {
		items = append(items, formatter.TreeItem{
			Name:     n.Name,
			ID:       n.ID,
			Level:    depth,
			IsFolder: n.IsFolder(),
		})
		depths = append(depths, depth)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range items {
		count := countDirectChildren(depths, i)
		if items[i].IsFolder {
			label := "empty"
			if count == 1 {
				label = "1 item"
			} else if count > 1 {
				label = fmt.Sprintf("%d items", count)
			}
			items[i].Detail = label
		}
		items[i].IsLast = isLastSibling(depths, i)
	}

	return items, nil
}

// countDirectChildren counts entries exactly one level deeper that appear
// before the walk returns to depths[i] or shallower.
func countDirectChildren(depths []int, i int) int {
	count := 0
	for j := i + 1; j < len(depths) && depths[j] > depths[i]; j++ {
		if depths[j] == depths[i]+1 {
			count++
		}
	}
	return count
}

// isLastSibling reports whether no later entry shares depths[i] before the
// walk leaves that subtree.
func isLastSibling(depths []int, i int) bool {
	for j := i + 1; j < len(depths); j++ {
		if depths[j] < depths[i] {
			return true
		}
		if depths[j] == depths[i] {
			return false
		}
	}
	return true
}
