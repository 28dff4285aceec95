// Command meshctl is a read-only terminal viewer for a running meshd's
// peer status, polling the JSON file meshd publishes
// (internal/status.Publisher) and redrawing a table on a timer. Grounded
// on the teacher's presentation/bubble_tea models
// (bubble_tea.Selector/TextArea): a small bubbletea.Model wrapping one
// bubbles widget, generalized here to bubbles/table plus a lipgloss
// header the teacher's TUI code doesn't use but the rest of the example
// pack (other charmbracelet consumers) does.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notxarb/tinc/internal/status"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

type tickMsg time.Time

type snapshotMsg struct {
	snap status.Snapshot
	err  error
}

type model struct {
	path     string
	interval time.Duration
	tbl      table.Model
	self     string
	takenAt  time.Time
	err      error
}

func newModel(path string, interval time.Duration) model {
	columns := []table.Column{
		{Title: "Peer", Width: 16},
		{Title: "Hostname", Width: 24},
		{Title: "Reach", Width: 6},
		{Title: "Key", Width: 6},
		{Title: "MTU", Width: 6},
		{Title: "Comp out/in", Width: 12},
		{Title: "Sent/Recv", Width: 14},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(15),
	)
	return model{path: path, interval: interval, tbl: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(pollCmd(m.path), tickCmd(m.interval))
}

func pollCmd(path string) tea.Cmd {
	return func() tea.Msg {
		snap, err := status.Read(path)
		return snapshotMsg{snap: snap, err: err}
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(pollCmd(m.path), tickCmd(m.interval))
	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.self = msg.snap.Self
			m.takenAt = msg.snap.TakenAt
			m.tbl.SetRows(rowsFor(msg.snap))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

func rowsFor(snap status.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Peers))
	for _, p := range snap.Peers {
		rows = append(rows, table.Row{
			p.Name,
			p.Hostname,
			boolMark(p.Reachable),
			boolMark(p.ValidKey),
			fmt.Sprintf("%d", p.MTU),
			fmt.Sprintf("%d/%d", p.OutCompression, p.InCompression),
			fmt.Sprintf("%d/%d", p.SentSeqno, p.Received),
		})
	}
	return rows
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (m model) View() string {
	header := headerStyle.Render(fmt.Sprintf("meshctl — %s (updated %s)", m.self, m.takenAt.Format(time.Kitchen)))
	if m.err != nil {
		return header + "\n\n" + errStyle.Render(fmt.Sprintf("waiting for status at this path: %v", m.err)) + "\n\nPress q to quit.\n"
	}
	return header + "\n\n" + m.tbl.View() + "\nPress q to quit.\n"
}

func main() {
	path := flag.String("status", "", "path to meshd's published status JSON (required)")
	interval := flag.Duration("interval", 2*time.Second, "poll interval")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "meshctl: -status is required")
		os.Exit(2)
	}

	p := tea.NewProgram(newModel(*path, *interval))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "meshctl: %v\n", err)
		os.Exit(1)
	}
}
