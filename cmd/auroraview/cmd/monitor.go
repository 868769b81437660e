package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aurora-view/auroraview/internal/bridge"
	"github.com/aurora-view/auroraview/internal/dispatch"
	"github.com/aurora-view/auroraview/pkg/auroraview"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of a demo window's queue depth, ready state, pending calls and backend health",
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	healthOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	healthBad   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	healthOther = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func monitorTableColumns() []table.Column {
	return []table.Column{
		{Title: "Metric", Width: 18},
		{Title: "Value", Width: 30},
	}
}

func newMonitorTable() table.Model {
	t := table.New(
		table.WithColumns(monitorTableColumns()),
		table.WithRows(monitorRows(auroraview.Diagnostics{})),
		table.WithHeight(6),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.NoColor{})
	t.SetStyles(s)
	return t
}

func monitorRows(d auroraview.Diagnostics) []table.Row {
	return []table.Row{
		{"queue depth", fmt.Sprintf("%d", d.QueueLen)},
		{"pending calls", fmt.Sprintf("%d", d.PendingCalls)},
		{"ready.created", boolCell(d.Ready.Created)},
		{"ready.shown", boolCell(d.Ready.Shown)},
		{"ready.loaded", boolCell(d.Ready.Loaded)},
		{"ready.bridge", boolCell(d.Ready.BridgeReady)},
		{"backend health", healthCell(d)},
	}
}

func boolCell(v bool) string {
	if v {
		return "set"
	}
	return "unset"
}

func healthCell(d auroraview.Diagnostics) string {
	label := d.Health.String()
	if d.HealthReason != "" {
		label += " (" + d.HealthReason + ")"
	}
	switch d.Health {
	case bridge.Healthy:
		return healthOK.Render(label)
	case bridge.Unhealthy:
		return healthBad.Render(label)
	default:
		return healthOther.Render(label)
	}
}

type tickMsg time.Time

type monitorModel struct {
	window *auroraview.Window
	table  table.Model
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m monitorModel) Init() tea.Cmd {
	return tick()
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.table.SetRows(monitorRows(m.window.Diagnostics()))
		return m, tick()
	}
	return m, nil
}

func (m monitorModel) View() string {
	return titleStyle.Render("auroraview monitor") + "\n\n" +
		m.table.View() + "\n\n" +
		helpStyle.Render("press q to quit")
}

func runMonitor(_ *cobra.Command, _ []string) error {
	w, err := auroraview.New(auroraview.Params{
		Mode:          dispatch.Standalone,
		EngineFactory: auroraview.DefaultEngineFactory,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("construct demo window: %w", err)
	}
	defer w.Close(context.Background())

	p := tea.NewProgram(monitorModel{window: w, table: newMonitorTable()})
	_, err = p.Run()
	return err
}
