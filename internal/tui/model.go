// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/problem"
	"github.com/verte-zerg/amcq/internal/quiz"
	"github.com/verte-zerg/amcq/internal/scoring"
	"github.com/verte-zerg/amcq/internal/session"
)

// Loader selects and fetches a problem.
type Loader interface {
	Select(ctx context.Context, c problem.Criteria) (model.Problem, error)
}

type problemMsg struct {
	gen     uint64
	problem model.Problem
	err     error
}

type tickMsg time.Time

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	bodyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#D8D8D8"))
	solutionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea quiz UI.
type Model struct {
	ctx    context.Context
	ctrl   *quiz.Controller
	loader Loader
	now    func() time.Time

	width  int
	height int

	answer       textinput.Model
	testPrompt   textinput.Model
	prompting    bool
	body         viewport.Model
	results      table.Model
	showSolution bool
	status       string
	startTest    string
}

// Options configures a Model.
type Options struct {
	// StartTest, when set, starts a test of that type on launch.
	StartTest string
	Now       func() time.Time
}

// NewModel constructs a quiz TUI model.
func NewModel(ctx context.Context, ctrl *quiz.Controller, loader Loader, opts Options) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	answer := textinput.New()
	answer.Prompt = "Answer: "
	answer.CharLimit = 8
	answer.Focus()

	prompt := textinput.New()
	prompt.Prompt = "Test type (AMC8, AMC10, AMC12, AIME): "
	prompt.CharLimit = 16

	return &Model{
		ctx:        ctx,
		ctrl:       ctrl,
		loader:     loader,
		now:        now,
		answer:     answer,
		testPrompt: prompt,
		body:       viewport.New(80, 10),
		results:    newResultsTable(),
		startTest:  opts.StartTest,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.startTest != "" && !m.ctrl.StartTest(m.startTest) {
		m.status = fmt.Sprintf("Unknown test type %q, practicing instead.", m.startTest)
	}
	return tea.Batch(textinput.Blink, tick(), m.loadIfPending())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadIfPending starts a problem load when the controller asks for one.
func (m *Model) loadIfPending() tea.Cmd {
	if !m.ctrl.Pending() {
		return nil
	}
	return m.load()
}

func (m *Model) load() tea.Cmd {
	req, ok := m.ctrl.Begin(m.ctx)
	if !ok {
		return nil
	}
	m.answer.Reset()
	m.showSolution = false
	m.refreshBody()
	loader := m.loader
	return func() tea.Msg {
		p, err := loader.Select(req.Ctx, req.Criteria)
		return problemMsg{gen: req.Gen, problem: p, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case problemMsg:
		if m.ctrl.Deliver(msg.gen, msg.problem, msg.err) {
			m.status = ""
			m.refreshBody()
		}
		return m, nil
	case tickMsg:
		m.ctrl.Tick(m.ctx, time.Time(msg), m.answer.Value())
		m.afterTransition()
		return m, tea.Batch(tick(), m.loadIfPending())
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.prompting {
		return m.handlePromptKey(msg)
	}
	switch msg.String() {
	case "enter":
		return m, m.submit()
	case "ctrl+n":
		if !m.ctrl.CanRequest() {
			return m, nil
		}
		m.status = ""
		return m, m.load()
	case "ctrl+g":
		if err := m.ctrl.GiveUp(m.ctx); err != nil {
			m.setError(err)
		}
		m.afterTransition()
		return m, m.loadIfPending()
	case "ctrl+s":
		if _, ok := m.ctrl.Solution(); ok {
			m.showSolution = !m.showSolution
			m.refreshBody()
		}
		return m, nil
	case "ctrl+t":
		m.prompting = true
		m.testPrompt.Reset()
		m.answer.Blur()
		return m, m.testPrompt.Focus()
	case "esc":
		switch m.ctrl.State() {
		case session.TestFinished:
			m.ctrl.Dismiss()
		case session.TestActive:
			m.ctrl.SwitchToPractice()
		default:
			return m, nil
		}
		m.status = ""
		m.afterTransition()
		return m, m.loadIfPending()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd
	}
	if m.ctrl.State() == session.TestFinished {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.answer, cmd = m.answer.Update(msg)
	m.status = ""
	if strings.TrimSpace(m.answer.Value()) != "" {
		m.status = m.ctrl.Feedback(m.answer.Value())
	}
	return m, cmd
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.testPrompt.Blur()
		return m, m.answer.Focus()
	case tea.KeyEnter:
		m.prompting = false
		m.testPrompt.Blur()
		if !m.ctrl.StartTest(m.testPrompt.Value()) {
			m.status = "Invalid test type, staying in practice."
		} else {
			m.status = ""
		}
		m.afterTransition()
		return m, tea.Batch(m.answer.Focus(), m.loadIfPending())
	}
	var cmd tea.Cmd
	m.testPrompt, cmd = m.testPrompt.Update(msg)
	return m, cmd
}

// submit scores the typed answer, or moves on when the practice problem was
// already answered.
func (m *Model) submit() tea.Cmd {
	if m.ctrl.State() == session.Practice {
		if _, answered := m.ctrl.Outcome(); answered {
			m.status = ""
			return m.load()
		}
	}
	err := m.ctrl.Submit(m.ctx, m.answer.Value())
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, scoring.ErrInvalidShape):
		m.status = "Enter a valid response! " + m.ctrl.Feedback(m.answer.Value())
		return nil
	default:
		m.setError(err)
	}
	m.afterTransition()
	return m.loadIfPending()
}

func (m *Model) setError(err error) {
	if errors.Is(err, quiz.ErrNoProblem) || errors.Is(err, quiz.ErrAnswered) {
		return
	}
	m.status = err.Error()
}

// afterTransition syncs widgets with the controller state.
func (m *Model) afterTransition() {
	if sum, ok := m.ctrl.Summary(); ok {
		m.results.SetRows(resultRows(sum.Results))
		m.answer.Blur()
	} else if !m.prompting {
		m.answer.Focus()
	}
	if _, answered := m.ctrl.Outcome(); !answered && m.ctrl.State() != session.TestFinished {
		m.showSolution = false
	}
	m.refreshBody()
}

func (m *Model) updateLayout() {
	contentWidth := m.contentWidth()
	m.body.Width = contentWidth
	m.body.Height = max(3, m.height-8)
	m.answer.Width = max(10, contentWidth-lipgloss.Width(m.answer.Prompt)-1)
	m.results.SetWidth(contentWidth)
	m.results.SetHeight(max(3, m.height-8))
	m.refreshBody()
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return max(20, int(float64(m.width)*0.8))
}

func (m *Model) refreshBody() {
	width := m.contentWidth()
	text := wrapText(m.ctrl.Body(), width)
	content := bodyStyle.Render(text)
	if m.showSolution {
		if sol, ok := m.ctrl.Solution(); ok {
			content += "\n\n" + solutionStyle.Render("Solution\n\n"+wrapText(sol, width))
		}
	}
	m.body.SetContent(content)
	m.body.GotoTop()
}

// View implements tea.Model.
func (m *Model) View() string {
	var sections []string
	if sum, ok := m.ctrl.Summary(); ok {
		sections = []string{m.renderSummary(sum)}
	} else {
		sections = []string{
			m.renderHeader(),
			m.body.View(),
			m.renderResult(),
			m.renderInput(),
		}
	}
	if m.status != "" {
		sections = append(sections, warningStyle.Render(m.status))
	}
	sections = append(sections, m.renderFooter())
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderHeader() string {
	mode := "Practice"
	if m.ctrl.State() == session.TestActive {
		mode = "Test"
	}
	label := m.ctrl.Label()
	if label == "" {
		return titleStyle.Render(mode)
	}
	return titleStyle.Render(mode + " · " + label)
}

func (m *Model) renderResult() string {
	msg := m.ctrl.ResultMessage()
	if msg == "" {
		return ""
	}
	o, ok := m.ctrl.Outcome()
	switch {
	case !ok:
		return noticeStyle.Render(msg)
	case o.Correct:
		return correctStyle.Render(msg)
	default:
		return incorrectStyle.Render(msg)
	}
}

func (m *Model) renderInput() string {
	if m.prompting {
		return m.testPrompt.View()
	}
	if _, answered := m.ctrl.Outcome(); answered {
		return footerStyle.Render("enter: next problem · ctrl+s: solution")
	}
	return m.answer.View()
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Streak %d", m.ctrl.Streak())}
	if left, ok := m.ctrl.Remaining(m.now()); ok {
		clock := "Time " + session.FormatClock(left)
		switch {
		case left <= 30*time.Second:
			clock = incorrectStyle.Render(clock)
		case left <= time.Minute:
			clock = warningStyle.Render(clock)
		}
		segments = append(segments, clock)
	}
	var help string
	switch m.ctrl.State() {
	case session.TestFinished:
		help = "esc: back to practice · ctrl+c: quit"
	case session.TestActive:
		help = "enter: submit · ctrl+g: give up · esc: end test · ctrl+c: quit"
	default:
		help = "enter: submit · ctrl+n: next · ctrl+g: give up · ctrl+t: test · ctrl+c: quit"
	}
	segments = append(segments, help)
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) renderSummary(sum quiz.Summary) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s Practice Test", sum.Kind.Level)),
		fmt.Sprintf("Score: %g / %g", sum.Score, sum.MaxScore),
		fmt.Sprintf("Time: %s", session.FormatClock(sum.Elapsed)),
		"",
		m.results.View(),
	}
	return strings.Join(lines, "\n")
}

func newResultsTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Result", Width: 7},
			{Title: "Your answer", Width: 12},
			{Title: "Correct", Width: 8},
			{Title: "Problem", Width: 20},
		}),
		table.WithHeight(10),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func resultRows(results []model.TestResult) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		mark := "✗"
		if r.Correct {
			mark = "✓"
		}
		answer := r.Answer
		if answer == "" {
			answer = "No answer"
		}
		label := r.ProblemID
		if ref, err := model.ParseID(r.ProblemID); err == nil {
			label = ref.Label()
		}
		rows = append(rows, table.Row{fmt.Sprintf("%d", r.Number), mark, answer, r.CorrectAnswer, label})
	}
	return rows
}
