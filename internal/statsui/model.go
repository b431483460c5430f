// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/session"
	"github.com/verte-zerg/amcq/internal/stats"
)

const (
	tabOverview = iota
	tabProgress
	tabLevels
	tabTests
)

const (
	plotHeight    = 10
	defaultWindow = 5
	topMissed     = 5
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the store data the browser reads.
type Source interface {
	stats.Source
	Streak(ctx context.Context) (int, error)
}

// Filter narrows what the browser shows.
type Filter struct {
	Year   int
	Level  model.Level
	Last   int
	Window int
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	src    Source
	filter Filter

	progress stats.ProgressReport
	history  stats.HistoryReport
	streak   int
	errMsg   string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	testTable   table.Model
	tableLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a stats UI model.
func NewModel(src Source, filter Filter) *Model {
	if filter.Window < 1 {
		filter.Window = defaultWindow
	}
	m := &Model{
		src:    src,
		filter: filter,
		tabs:   []string{"Overview", "Progress", "Levels", "Tests"},
	}
	m.initInputs()
	m.testTable = buildTestTable(nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.activeTab == tabTests {
			m.testTable.Focus()
		} else {
			m.testTable.Blur()
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.filter.Window = nextWindow(m.filter.Window)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "-":
			m.filter.Window = prevWindow(m.filter.Window)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabTests {
				m.testTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabTests {
				m.testTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabTests {
				var cmd tea.Cmd
				m.testTable, cmd = m.testTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Year: "),
		newFilterInput("Level: "),
		newFilterInput("Last: "),
		newFilterInput("Window: "),
	}
	m.setInputsFromFilter()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[0].SetValue(optionalInt(m.filter.Year))
	m.filterInputs[1].SetValue(string(m.filter.Level))
	m.filterInputs[2].SetValue(optionalInt(m.filter.Last))
	m.filterInputs[3].SetValue(strconv.Itoa(m.filter.Window))
}

func optionalInt(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabTests {
		m.testTable.Focus()
	} else {
		m.testTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	year := "any"
	if m.filter.Year > 0 {
		year = strconv.Itoa(m.filter.Year)
	}
	level := "any"
	if m.filter.Level != "" {
		level = string(m.filter.Level)
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	summary := fmt.Sprintf("Filter: year=%s  level=%s  last=%s  window=%d", year, level, last, m.filter.Window)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Filter: /  Quit: q")
}

func (m *Model) renderFilterHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return m.renderFilterHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabTests {
		if len(m.history.Tests) == 0 {
			return fitLines("No tests found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.testTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	ctx := context.Background()
	progress, err := stats.BuildProgressReport(ctx, m.src, model.ProgressFilter{Year: m.filter.Year, Level: m.filter.Level})
	if err == nil {
		var history stats.HistoryReport
		history, err = stats.BuildHistoryReport(ctx, m.src, model.TestFilter{Level: m.filter.Level, Last: m.filter.Last}, m.filter.Window)
		m.history = history
	}
	if err == nil {
		m.streak, err = m.src.Streak(ctx)
	}
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.progress = progress
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyTestTable(width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.progress, m.history, m.streak, width))
	m.viewports[tabProgress].SetContent(renderProgress(m.progress, width))
	m.viewports[tabLevels].SetContent(renderLevels(m.progress))
}

func renderOverview(progress stats.ProgressReport, history stats.HistoryReport, streak, width int) string {
	summary := renderSummaryCards(progress, history, streak, width)
	if len(history.Tests) == 0 {
		return summary + "\n\nNo tests found."
	}
	return strings.TrimRight(summary+"\n\n"+renderCurves(history, width), "\n")
}

func renderSummaryCards(progress stats.ProgressReport, history stats.HistoryReport, streak, width int) string {
	solved := 0
	for _, e := range progress.Entries {
		if e.Correct {
			solved++
		}
	}
	avg, best := "-", "-"
	if len(history.Percents) > 0 {
		var total, top float64
		for _, p := range history.Percents {
			total += p
			top = max(top, p)
		}
		avg = fmt.Sprintf("%.1f%%", total/float64(len(history.Percents)))
		best = fmt.Sprintf("%.1f%%", top)
	}
	cards := []string{
		metricCard("Streak", strconv.Itoa(streak)),
		metricCard("Attempted", strconv.Itoa(len(progress.Entries))),
		metricCard("Solved", strconv.Itoa(solved)),
		metricCard("Tests", strconv.Itoa(len(history.Tests))),
		metricCard("Avg Score", avg),
		metricCard("Best Score", best),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(history stats.HistoryReport, width int) string {
	var buf bytes.Buffer
	series := []stats.Series{
		{Name: "score %", Values: history.Percents},
		{Name: "moving avg", Values: history.Average},
	}
	if err := stats.PlotPercents(&buf, "Test scores", series, stats.PlotWidthFor(width), plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderProgress(progress stats.ProgressReport, width int) string {
	if len(progress.Matrix) == 0 {
		return "No progress recorded."
	}
	var buf bytes.Buffer
	if err := stats.RenderTopMissed(&buf, progress.Matrix, topMissed); err != nil {
		return fmt.Sprintf("Failed to render progress: %v", err)
	}
	if err := stats.RenderMatrix(&buf, progress.Matrix, width, true); err != nil {
		return fmt.Sprintf("Failed to render progress: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderLevels(progress stats.ProgressReport) string {
	var buf bytes.Buffer
	if err := stats.RenderLevelTable(&buf, progress.Levels); err != nil {
		return fmt.Sprintf("Failed to render levels: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func buildTestTable(tests []model.TestRecord, width, height int) table.Model {
	cols, rows := buildTestTableData(tests)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(tableStyles())
	return t
}

// buildTestTableData lists tests newest first.
func buildTestTableData(tests []model.TestRecord) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Test", Width: 6},
		{Title: "Score", Width: 12},
		{Title: "Percent", Width: 8},
		{Title: "Correct", Width: 8},
		{Title: "Time", Width: 8},
	}
	rows := make([]table.Row, 0, len(tests))
	for i := len(tests) - 1; i >= 0; i-- {
		t := tests[i]
		correct := 0
		for _, r := range t.Results {
			if r.Correct {
				correct++
			}
		}
		rows = append(rows, table.Row{
			t.StartedAt.Local().Format("2006-01-02 15:04"),
			string(t.Level),
			fmt.Sprintf("%g / %g", t.Score, t.MaxScore),
			fmt.Sprintf("%.1f%%", stats.Percent(t.Score, t.MaxScore)),
			fmt.Sprintf("%d/%d", correct, len(t.Results)),
			session.FormatClock(t.EndedAt.Sub(t.StartedAt).Round(time.Second)),
		})
	}
	return columns, rows
}

func (m *Model) applyTestTable(width, height int) {
	cols, rows := buildTestTableData(m.history.Tests)
	m.testTable.SetColumns(cols)
	m.testTable.SetRows(rows)
	m.tableLayout.rowCount = len(rows)
	m.tableLayout.width = 0
	m.setTableSize(width, height)
}

func (m *Model) setTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.tableLayout.width == width && m.tableLayout.height == viewportHeight {
		return
	}
	m.tableLayout.width = width
	m.tableLayout.height = viewportHeight
	m.testTable.SetWidth(width)
	m.testTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustTableHeight(height)
	if m.tableLayout.height != viewportHeight {
		m.tableLayout.height = viewportHeight
		m.testTable.SetHeight(viewportHeight)
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// adjustTableHeight resizes the table until its rendered view fills bodyHeight.
func (m *Model) adjustTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.testTable.Height()
	for n := 0; n < 2; n++ {
		viewHeight := lipgloss.Height(m.testTable.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		m.testTable.SetHeight(height)
	}
	return height
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	year, err := parseOptionalInt(m.filterInputs[0].Value())
	if err != nil || (year != 0 && (year < model.FirstYear || year > model.LatestYear)) {
		return fmt.Errorf("invalid year (use %d-%d or leave empty)", model.FirstYear, model.LatestYear)
	}

	var level model.Level
	if raw := strings.TrimSpace(m.filterInputs[1].Value()); raw != "" {
		level, err = model.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("invalid level (use AMC8, AMC10, AMC12 or AIME)")
		}
	}

	last, err := parseOptionalInt(m.filterInputs[2].Value())
	if err != nil {
		return fmt.Errorf("invalid last value (use 0 or positive integer)")
	}

	window := defaultWindow
	if raw := strings.TrimSpace(m.filterInputs[3].Value()); raw != "" {
		window, err = strconv.Atoi(raw)
		if err != nil || window < 1 {
			return fmt.Errorf("invalid window (use integer >= 1)")
		}
	}

	m.filter = Filter{Year: year, Level: level, Last: last, Window: window}
	return nil
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return n, nil
}

func nextWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
