package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/knowmap/pkg/kgraph"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// NodePickerModel - Interactive focal node selection
// =============================================================================

// NodePickerModel is the bubbletea model behind "knowmap pick". Typing
// narrows the list by id or title; enter selects the highlighted node.
type NodePickerModel struct {
	all        []*kgraph.Node
	dependents map[string]int

	Query    string
	Visible  []*kgraph.Node
	Cursor   int
	Offset   int
	Height   int
	Selected *kgraph.Node
}

// NewNodePickerModel creates a picker over g's nodes, sorted by id.
func NewNodePickerModel(g *kgraph.Graph) NodePickerModel {
	nodes := filterNodes(g.Nodes(), "")
	dependents := make(map[string]int, len(nodes))
	for _, n := range nodes {
		dependents[n.ID] = len(g.Dependents(n.ID))
	}
	return NodePickerModel{
		all:        nodes,
		dependents: dependents,
		Visible:    nodes,
		Height:     15,
	}
}

func (m NodePickerModel) Init() tea.Cmd {
	return nil
}

func (m NodePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			m.move(-1)
		case tea.KeyDown:
			m.move(1)
		case tea.KeyEnter:
			if len(m.Visible) > 0 {
				m.Selected = m.Visible[m.Cursor]
			}
			return m, tea.Quit
		case tea.KeyBackspace:
			if m.Query != "" {
				r := []rune(m.Query)
				m.setQuery(string(r[:len(r)-1]))
			}
		case tea.KeyRunes, tea.KeySpace:
			m.setQuery(m.Query + string(msg.Runes))
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m *NodePickerModel) move(delta int) {
	next := m.Cursor + delta
	if next < 0 || next >= len(m.Visible) {
		return
	}
	m.Cursor = next
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *NodePickerModel) setQuery(q string) {
	m.Query = q
	m.Visible = filterNodes(m.all, q)
	m.Cursor, m.Offset = 0, 0
}

func (m NodePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Focal Node"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("type to filter  ↑/↓ navigate  ⏎ select  esc quit"))
	b.WriteString("\n\n")
	b.WriteString("  " + StyleHighlight.Render("/") + " " + m.Query + "\n")

	end := min(m.Offset+m.Height, len(m.Visible))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		n := m.Visible[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			n.ID,
			n.DisplayTitle(),
			strconv.Itoa(len(n.DependencyIDs())),
			strconv.Itoa(m.dependents[n.ID]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Title", "Requires", "Required by").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 3 {
				return listDimStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(m.Visible) == 0 {
		b.WriteString(StyleWarning.Render("  no matching nodes"))
	} else {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Visible))))
	}
	return b.String()
}
