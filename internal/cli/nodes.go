package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/modelprep/modelprep/pkg/graph"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// newNodesCmd creates the "nodes" command: an interactive browser over a
// graph file's nodes.
func newNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes <graph-file>",
		Short: "Browse a graph's nodes interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadGraphFile(args[0])
			if err != nil {
				return err
			}

			m := newNodeListModel(g)
			prog := tea.NewProgram(m, tea.WithContext(cmd.Context()))
			_, err = prog.Run()
			return err
		},
	}
}

// nodeListModel is the bubbletea model for browsing graph nodes. The left
// pane lists nodes; the detail pane shows the selected node's op, inputs,
// consumers and attributes.
type nodeListModel struct {
	graph   *graph.Graph
	nodes   []*graph.Node
	outputs map[string]bool
	cursor  int
	height  int
	offset  int
}

func newNodeListModel(g *graph.Graph) nodeListModel {
	outputs := make(map[string]bool)
	for _, name := range g.Outputs() {
		outputs[name] = true
	}
	return nodeListModel{
		graph:   g,
		nodes:   g.Nodes(),
		outputs: outputs,
		height:  15,
	}
}

func (m nodeListModel) Init() tea.Cmd {
	return nil
}

func (m nodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.nodes)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "g":
			m.cursor, m.offset = 0, 0
		case "G":
			m.cursor = len(m.nodes) - 1
			if m.cursor >= m.height {
				m.offset = m.cursor - m.height + 1
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 10
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m nodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Graph Nodes (%d)", len(m.nodes))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.nodes) {
		end = len(m.nodes)
	}

	for i := m.offset; i < end; i++ {
		n := m.nodes[i]
		cursor := "  "
		style := listNormalStyle
		if i == m.cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}

		line := cursor + style.Render(n.Name) + " " + listDimStyle.Render(n.Op)
		if m.outputs[n.Name] {
			line += " " + StyleSuccess.Render("output")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.nodes) > 0 {
		b.WriteString("\n")
		b.WriteString(m.detailView(m.nodes[m.cursor]))
	}
	return b.String()
}

// detailView renders the selected node's edges and attributes.
func (m nodeListModel) detailView(n *graph.Node) string {
	var b strings.Builder

	b.WriteString(StyleHighlight.Render(n.Name))
	b.WriteString(listDimStyle.Render(" (" + n.Op + ")"))
	b.WriteString("\n")

	if len(n.Inputs) > 0 {
		b.WriteString(listDimStyle.Render("inputs:    "))
		b.WriteString(strings.Join(n.Inputs, ", "))
		b.WriteString("\n")
	}
	if consumers := m.graph.Consumers(n.Name); len(consumers) > 0 {
		b.WriteString(listDimStyle.Render("consumers: "))
		b.WriteString(strings.Join(consumers, ", "))
		b.WriteString("\n")
	}
	for _, name := range slices.Sorted(maps.Keys(n.Attrs)) {
		b.WriteString(listDimStyle.Render(name + ": "))
		b.WriteString(n.Attrs[name].String())
		b.WriteString("\n")
	}
	return b.String()
}
