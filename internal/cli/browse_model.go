package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoran/casetree/internal/cli/formatter"
	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/domain"
	"github.com/avoran/casetree/internal/dragdrop"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// browseRow is one flattened row of the hierarchy.
type browseRow struct {
	node  *domain.TreeNode
	depth int
}

// browseLoadedMsg signals that the tree has been (re)loaded.
type browseLoadedMsg struct {
	rows []browseRow
	err  error
}

// browseMovedMsg carries the outcome of a drop.
type browseMovedMsg struct {
	res *contract.DragDropResult
	err error
}

// browseMutatedMsg carries the outcome of a create/rename/delete.
type browseMutatedMsg struct {
	status string
	err    error
}

type browseFormAction int

const (
	formNone browseFormAction = iota
	formAdd
	formRename
	formConfirmDelete
)

// browseModel is the interactive tree browser: navigate with the cursor,
// grab a node, hover a target with a chosen drop zone, and drop to move.
type browseModel struct {
	app    *App
	rows   []browseRow
	cursor int

	drag *dragdrop.Session

	loading bool
	status  string

	// Active modal form state (add/rename/delete confirm).
	form          *huh.Form
	formAction    browseFormAction
	formName      string
	formType      string
	formParentID  *int64
	formTargetID  int64
	formConfirmed bool
}

func newBrowseModel(app *App) *browseModel {
	return &browseModel{app: app, loading: true}
}

func (m *browseModel) Init() tea.Cmd {
	return m.loadRows()
}

func (m *browseModel) loadRows() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		var rows []browseRow
		err := app.Search.Walk(context.Background(), func(n *domain.TreeNode, depth int) error {
			rows = append(rows, browseRow{node: n, depth: depth})
			return nil
		})
		return browseLoadedMsg{rows: rows, err: err}
	}
}

func (m *browseModel) shortHelp() []key.Binding {
	if m.drag != nil {
		return []key.Binding{
			key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "hover")),
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "zone")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "move")),
		key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "grab")),
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
		key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// An active form owns all input until it completes or aborts.
	if m.form != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.Type {
			case tea.KeyCtrlC:
				return m, tea.Quit
			case tea.KeyEsc:
				m.clearForm()
				m.status = formatter.Dim("Cancelled.")
				return m, nil
			}
		}
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		switch m.form.State {
		case huh.StateCompleted:
			return m, m.completeForm()
		case huh.StateAborted:
			m.clearForm()
			m.status = formatter.Dim("Cancelled.")
			return m, cmd
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case browseLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = formatter.StyleRed.Render(msg.err.Error())
			return m, nil
		}
		m.rows = msg.rows
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case browseMovedMsg:
		if msg.res != nil && !msg.res.Success {
			m.status = formatter.StyleRed.Render("✗ " + msg.res.Message)
			return m, nil
		}
		if msg.err != nil {
			m.status = formatter.StyleRed.Render(msg.err.Error())
			return m, nil
		}
		m.status = formatter.StyleGreen.Render("✓ " + msg.res.Message)
		m.loading = true
		return m, m.loadRows()

	case browseMutatedMsg:
		if msg.err != nil {
			m.status = formatter.StyleRed.Render(msg.err.Error())
			return m, nil
		}
		m.status = formatter.StyleGreen.Render(msg.status)
		m.loading = true
		return m, m.loadRows()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.drag == nil || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.hoverCursor()
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.hoverCursor()
		}

	case " ", "space":
		if m.drag == nil && m.cursor < len(m.rows) {
			m.drag = dragdrop.Start(m.rows[m.cursor].node)
			m.hoverCursor()
			m.status = formatter.Dim(fmt.Sprintf("Moving %q — pick a target and zone, enter to drop.", m.drag.Dragged.Name))
		}

	case "tab":
		if m.drag != nil {
			m.cycleZone()
		}

	case "enter":
		if m.drag != nil && m.drag.CanDrop() {
			return m, m.executeDrop()
		}

	case "esc":
		if m.drag != nil {
			m.drag.Cancel()
			m.drag = nil
			m.status = formatter.Dim("Move cancelled.")
		} else {
			return m, tea.Quit
		}

	case "a":
		if m.drag == nil {
			m.openAddForm()
			return m, m.form.Init()
		}

	case "e":
		if m.drag == nil && m.cursor < len(m.rows) {
			m.openRenameForm(m.rows[m.cursor].node)
			return m, m.form.Init()
		}

	case "x":
		if m.drag == nil && m.cursor < len(m.rows) {
			return m.startDelete(m.rows[m.cursor])
		}

	case "r":
		m.loading = true
		return m, m.loadRows()
	}

	return m, nil
}

// hoverCursor re-hovers the drag session over the row under the cursor,
// keeping the previous zone where the new target allows it.
func (m *browseModel) hoverCursor() {
	if m.drag == nil || m.cursor >= len(m.rows) {
		return
	}
	target := m.rows[m.cursor].node
	zone := m.drag.Zone
	if zone == domain.ZoneInvalid {
		zone = domain.ZoneTop
	}
	m.drag.Hover(target, zone)
}

// cycleZone steps top → bottom → middle (folders only) → top.
func (m *browseModel) cycleZone() {
	if m.drag.Target == nil {
		return
	}
	var next domain.DropZone
	switch m.drag.Zone {
	case domain.ZoneTop:
		next = domain.ZoneBottom
	case domain.ZoneBottom:
		if m.drag.Target.CanHaveChildren() {
			next = domain.ZoneMiddle
		} else {
			next = domain.ZoneTop
		}
	default:
		next = domain.ZoneTop
	}
	m.drag.Hover(m.drag.Target, next)
}

func (m *browseModel) executeDrop() tea.Cmd {
	req, err := m.drag.BuildRequest()
	m.drag.Cancel()
	m.drag = nil
	if err != nil {
		m.status = formatter.StyleRed.Render(err.Error())
		return nil
	}
	app := m.app
	return func() tea.Msg {
		res, err := app.Tree.MoveNode(context.Background(), req)
		return browseMovedMsg{res: res, err: err}
	}
}

// openAddForm opens the create form. The new node's parent is the folder
// under the cursor, or the cursor row's own parent for test case rows.
func (m *browseModel) openAddForm() {
	m.formName = ""
	m.formType = string(domain.KindTestCase)
	m.formParentID = nil
	if m.cursor < len(m.rows) {
		n := m.rows[m.cursor].node
		if n.IsFolder() {
			id := n.ID
			m.formParentID = &id
		} else {
			m.formParentID = n.ParentID
		}
	}

	m.formAction = formAdd
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.formName).
				Validate(validateRequired),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Test case", string(domain.KindTestCase)),
					huh.NewOption("Folder", string(domain.KindFolder)),
				).
				Value(&m.formType),
		),
	).WithTheme(casetreeHuhTheme()).WithShowHelp(false)
}

func (m *browseModel) openRenameForm(n *domain.TreeNode) {
	m.formName = n.Name
	m.formTargetID = n.ID
	m.formAction = formRename
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Rename %q", n.Name)).
				Value(&m.formName).
				Validate(validateRequired),
		),
	).WithTheme(casetreeHuhTheme()).WithShowHelp(false)
}

// startDelete deletes leaf rows immediately and asks for confirmation
// before cascading a non-empty folder.
func (m *browseModel) startDelete(row browseRow) (tea.Model, tea.Cmd) {
	n := row.node
	children := m.countChildRows(row)
	if !n.IsFolder() || children == 0 {
		id := n.ID
		name := n.Name
		app := m.app
		return m, func() tea.Msg {
			if err := app.Tree.DeleteNode(context.Background(), id, false); err != nil {
				return browseMutatedMsg{err: err}
			}
			return browseMutatedMsg{status: fmt.Sprintf("Deleted %q.", name)}
		}
	}

	m.formTargetID = n.ID
	m.formConfirmed = false
	m.formAction = formConfirmDelete
	m.formName = n.Name
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q and %d item(s) inside it?", n.Name, children)).
				Affirmative("Delete").
				Negative("Keep").
				Value(&m.formConfirmed),
		),
	).WithTheme(casetreeHuhTheme()).WithShowHelp(false)
	return m, m.form.Init()
}

// countChildRows counts all descendants of row in the current flattening.
func (m *browseModel) countChildRows(row browseRow) int {
	count := 0
	started := false
	for _, r := range m.rows {
		if r.node.ID == row.node.ID {
			started = true
			continue
		}
		if !started {
			continue
		}
		if r.depth <= row.depth {
			break
		}
		count++
	}
	return count
}

func (m *browseModel) completeForm() tea.Cmd {
	action := m.formAction
	name := m.formName
	kind := domain.NodeKind(m.formType)
	parentID := m.formParentID
	targetID := m.formTargetID
	confirmed := m.formConfirmed
	m.clearForm()

	app := m.app
	switch action {
	case formAdd:
		return func() tea.Msg {
			n, err := app.Tree.CreateNode(context.Background(), contract.CreateTreeNodeRequest{
				Name:     name,
				Type:     kind,
				ParentID: parentID,
			})
			if err != nil {
				return browseMutatedMsg{err: err}
			}
			return browseMutatedMsg{status: fmt.Sprintf("Created %s %q.", n.Kind, n.Name)}
		}
	case formRename:
		return func() tea.Msg {
			n, err := app.Tree.RenameNode(context.Background(), targetID, name)
			if err != nil {
				return browseMutatedMsg{err: err}
			}
			return browseMutatedMsg{status: fmt.Sprintf("Renamed to %q.", n.Name)}
		}
	case formConfirmDelete:
		if !confirmed {
			m.status = formatter.Dim("Kept.")
			return nil
		}
		return func() tea.Msg {
			if err := app.Tree.DeleteNode(context.Background(), targetID, true); err != nil {
				return browseMutatedMsg{err: err}
			}
			return browseMutatedMsg{status: fmt.Sprintf("Deleted %q.", name)}
		}
	}
	return nil
}

func (m *browseModel) clearForm() {
	m.form = nil
	m.formAction = formNone
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func (m *browseModel) View() string {
	if m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	b.WriteString(formatter.Header("Test Cases"))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(formatter.Dim("Loading…") + "\n")
	} else if len(m.rows) == 0 {
		b.WriteString(formatter.Dim("The tree is empty. Press a to add a node.") + "\n")
	}

	for i, row := range m.rows {
		b.WriteString(m.renderRow(i, row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(renderHelp(m.shortHelp()))
	return b.String()
}

func (m *browseModel) renderRow(i int, row browseRow) string {
	indent := strings.Repeat("  ", row.depth)

	title := row.node.Name
	if row.node.IsFolder() {
		title = "▸ " + title
	}
	title += fmt.Sprintf("  #%d", row.node.ID)

	cursor := "  "
	if i == m.cursor {
		cursor = formatter.StyleHeader.Render("→ ")
	}

	line := cursor + indent + title

	if m.drag != nil {
		switch {
		case row.node.ID == m.drag.Dragged.ID:
			return formatter.Dim(line + "  (moving)")
		case m.drag.Target != nil && row.node.ID == m.drag.Target.ID:
			return formatter.StyleYellow.Render(line) + "  " + zoneBadge(m.drag.Zone)
		}
	}

	if i == m.cursor {
		return formatter.Bold(line)
	}
	return line
}

func zoneBadge(zone domain.DropZone) string {
	switch zone {
	case domain.ZoneTop:
		return formatter.StyleBlue.Render("[ before ]")
	case domain.ZoneBottom:
		return formatter.StyleBlue.Render("[ after ]")
	case domain.ZoneMiddle:
		return formatter.StyleGreen.Render("[ into ]")
	default:
		return formatter.StyleRed.Render("[ invalid ]")
	}
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("%s %s", formatter.Bold(h.Key), formatter.Dim(h.Desc)))
	}
	return strings.Join(parts, formatter.Dim("  ·  "))
}
