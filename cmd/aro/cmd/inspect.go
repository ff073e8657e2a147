package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
	"github.com/arolang/aro/internal/codegen"
	"github.com/arolang/aro/internal/cycle"
	"github.com/arolang/aro/internal/openapi"
)

func newInspectCmd() *cobra.Command {
	var openapiPath string

	cmd := &cobra.Command{
		Use:   "inspect <program.json>",
		Short: "Browse an analyzed program in an interactive terminal UI",
		Long: `inspect loads an analyzed program and opens a terminal browser over
its feature sets, generated module, routes (when --openapi is given),
and any cycles detected in its emit graph.

Tab switches panes, up/down or j/k moves the selection, q quits.`,
		Args: cobra.ExactArgs(1),
		Example: `  aro inspect analyzed.json
  aro inspect analyzed.json --openapi openapi.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], openapiPath)
		},
	}

	cmd.Flags().StringVar(&openapiPath, "openapi", "", "Path to an OpenAPI document to cross-reference routes against")

	return cmd
}

func runInspect(cmd *cobra.Command, programPath, openapiPath string) error {
	program, err := loadProgram(programPath)
	if err != nil {
		return err
	}

	mod, genErrs := codegen.Generate(program)
	cycles := cycle.Analyze(program)

	var doc *openapi.Document
	if openapiPath != "" {
		raw, err := os.ReadFile(openapiPath)
		if err != nil {
			return fmt.Errorf("read openapi document: %w", err)
		}
		doc, err = openapi.ParseDocument(raw)
		if err != nil {
			return fmt.Errorf("parse openapi document: %w", err)
		}
	}

	m := newInspectModel(program, mod, genErrs, cycles, doc)
	p := tea.NewProgram(m, tea.WithOutput(cmd.OutOrStdout()))
	_, err = p.Run()
	return err
}

type inspectPane int

const (
	paneFeatureSets inspectPane = iota
	paneRoutes
	paneCycles
	paneModule
	paneCount
)

func (p inspectPane) title() string {
	switch p {
	case paneFeatureSets:
		return "Feature Sets"
	case paneRoutes:
		return "Routes"
	case paneCycles:
		return "Cycles"
	case paneModule:
		return "Module"
	default:
		return ""
	}
}

type inspectStyles struct {
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	header      lipgloss.Style
	dim         lipgloss.Style
	warn        lipgloss.Style
}

func defaultInspectStyles() inspectStyles {
	return inspectStyles{
		tabActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Underline(true),
		tabInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		header:      lipgloss.NewStyle().Bold(true),
		dim:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warn:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// inspectModel is the root bubbletea model for the inspect command. Each
// pane owns its own table.Model; the root only tracks which pane is
// active and routes key and size messages to it.
type inspectModel struct {
	program ast.Program
	mod     *codegen.Module
	genErrs int
	cycles  []cycle.Cycle
	doc     *openapi.Document

	active inspectPane
	width  int
	height int
	styles inspectStyles

	featureSets table.Model
	routes      table.Model
	cyclesTable table.Model
}

func newInspectModel(program ast.Program, mod *codegen.Module, genErrs []*aroerr.Error, cycles []cycle.Cycle, doc *openapi.Document) inspectModel {
	m := inspectModel{
		program: program,
		mod:     mod,
		genErrs: len(genErrs),
		cycles:  cycles,
		doc:     doc,
		styles:  defaultInspectStyles(),
	}

	m.featureSets = table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 30},
			{Title: "Activity", Width: 24},
			{Title: "Kind", Width: 14},
			{Title: "Statements", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	m.featureSets.SetRows(featureSetRows(program))

	m.routes = table.New(
		table.WithColumns([]table.Column{
			{Title: "Method", Width: 8},
			{Title: "Pattern", Width: 34},
			{Title: "OperationID", Width: 24},
		}),
		table.WithHeight(15),
	)
	if doc != nil {
		m.routes.SetRows(routeRows(doc))
	}

	m.cyclesTable = table.New(
		table.WithColumns([]table.Column{
			{Title: "Path", Width: 50},
			{Title: "Feature Sets", Width: 34},
		}),
		table.WithHeight(15),
	)
	m.cyclesTable.SetRows(cycleRows(cycles))

	return m
}

func featureSetRows(program ast.Program) []table.Row {
	rows := make([]table.Row, 0, len(program.FeatureSets))
	for _, fs := range program.FeatureSets {
		kind := "handler"
		switch {
		case fs.IsEntryPoint():
			kind = "entry point"
		case fs.IsObserver():
			kind = "observer"
		case !fs.IsHandler():
			kind = "plain"
		}
		rows = append(rows, table.Row{fs.Name, fs.BusinessActivity, kind, strconv.Itoa(len(fs.Statements))})
	}
	return rows
}

func routeRows(doc *openapi.Document) []table.Row {
	rows := make([]table.Row, 0, len(doc.Routes))
	for _, r := range doc.Routes {
		rows = append(rows, table.Row{r.Method, r.Pattern, r.OperationID})
	}
	return rows
}

func cycleRows(cycles []cycle.Cycle) []table.Row {
	rows := make([]table.Row, 0, len(cycles))
	for _, c := range cycles {
		rows = append(rows, table.Row{strings.Join(c.Path, " -> "), strings.Join(c.FeatureSets, ", ")})
	}
	return rows
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.active = (m.active + 1) % paneCount
			return m, nil
		case "shift+tab":
			m.active = (m.active - 1 + paneCount) % paneCount
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.active {
	case paneFeatureSets:
		m.featureSets, cmd = m.featureSets.Update(msg)
	case paneRoutes:
		m.routes, cmd = m.routes.Update(msg)
	case paneCycles:
		m.cyclesTable, cmd = m.cyclesTable.Update(msg)
	}
	return m, cmd
}

func (m inspectModel) View() string {
	var sb strings.Builder

	var tabs []string
	for p := inspectPane(0); p < paneCount; p++ {
		style := m.styles.tabInactive
		if p == m.active {
			style = m.styles.tabActive
		}
		tabs = append(tabs, style.Render(p.title()))
	}
	sb.WriteString(strings.Join(tabs, "  ") + "\n\n")

	switch m.active {
	case paneFeatureSets:
		entries := len(m.program.EntryPoints())
		sb.WriteString(m.styles.dim.Render(fmt.Sprintf("%d feature set(s), %d entry point(s)", len(m.program.FeatureSets), entries)) + "\n\n")
		sb.WriteString(m.featureSets.View())
	case paneRoutes:
		if m.doc == nil {
			sb.WriteString(m.styles.dim.Render("no openapi document loaded (pass --openapi)"))
		} else {
			sb.WriteString(m.styles.dim.Render(fmt.Sprintf("openapi %s, %d route(s)", m.doc.Version, len(m.doc.Routes))) + "\n\n")
			sb.WriteString(m.routes.View())
		}
	case paneCycles:
		if len(m.cycles) == 0 {
			sb.WriteString(m.styles.dim.Render("no cycles detected in the emit graph"))
		} else {
			sb.WriteString(m.styles.warn.Render(fmt.Sprintf("%d cycle(s) detected", len(m.cycles))) + "\n\n")
			sb.WriteString(m.cyclesTable.View())
		}
	case paneModule:
		sb.WriteString(m.moduleView())
	}

	sb.WriteString("\n\n" + m.styles.dim.Render("tab: switch pane  q: quit"))
	return sb.String()
}

func (m inspectModel) moduleView() string {
	if m.mod == nil {
		return m.styles.warn.Render(fmt.Sprintf("module generation failed with %d error(s)", m.genErrs))
	}
	var sb strings.Builder
	sb.WriteString(m.styles.header.Render(fmt.Sprintf("module %q, %d function(s)", m.mod.Name, len(m.mod.Functions))) + "\n\n")
	if m.genErrs > 0 {
		sb.WriteString(m.styles.warn.Render(fmt.Sprintf("%d error(s) during generation", m.genErrs)) + "\n\n")
	}
	body := m.mod.String()
	lines := strings.Split(body, "\n")
	max := 40
	if len(lines) < max {
		max = len(lines)
	}
	sb.WriteString(strings.Join(lines[:max], "\n"))
	if len(lines) > max {
		sb.WriteString(fmt.Sprintf("\n%s", m.styles.dim.Render(fmt.Sprintf("... %d more line(s)", len(lines)-max))))
	}
	return sb.String()
}
