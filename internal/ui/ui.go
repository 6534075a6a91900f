package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StatsView ViewState = iota
	MonthlyView
	StudentsView
	SummaryView
)

var viewNames = []string{"Overview", "Monthly", "Students"}

var _ tea.Model = (*Model)(nil)

// StatsSource computes the reports shown by the TUI. [tasks.StatsEngine] implements it.
type StatsSource interface {
	CombinedStats(ctx context.Context, period shared.Period) (*tasks.CombinedStats, error)
	MonthlyPaymentsAndExpenses(ctx context.Context, year int) ([]tasks.MonthlyTotal, error)
	StudentSummary(ctx context.Context, studentID string) (*tasks.StudentSummary, error)
}

// StudentLister loads students for the student list.
type StudentLister interface {
	List(ctx context.Context, criteria models.Criteria) ([]*models.Student, error)
}

// Opts configures a [Model].
type Opts struct {
	Stats    StatsSource
	Students StudentLister
	School   string
	Currency string
	Now      time.Time // selects the starting month; defaults to time.Now
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	stats    StatsSource
	students StudentLister
	school   string
	currency string

	year      int
	month     time.Month // zero while viewing the whole year
	lastMonth time.Month
	loading   bool

	combined    *tasks.CombinedStats
	monthly     []tasks.MonthlyTotal
	table       table.Model
	studentList list.Model
	summary     *tasks.StudentSummary
	err         error

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Opts) *Model {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	m := &Model{
		ctx:       ctx,
		view:      StatsView,
		stats:     opts.Stats,
		students:  opts.Students,
		school:    opts.School,
		currency:  opts.Currency,
		year:      now.Year(),
		month:     now.Month(),
		lastMonth: now.Month(),
		loading:   true,
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.table = newMonthlyTable()
	m.studentList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.studentList.Title = "Students"
	return m
}

func newMonthlyTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Month", Width: 10},
			{Title: "Payments", Width: 16},
			{Title: "Expenses", Width: 16},
			{Title: "Net", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(13),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7C3AED"))
	t.SetStyles(s)
	return t
}

// Init loads the first period and the student list.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadStats(), m.loadStudents())
}

// Period is the reporting period currently shown.
func (m *Model) Period() shared.Period {
	if m.month == 0 {
		return shared.YearRange(m.year)
	}
	return shared.MonthRange(m.year, m.month)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.studentList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatsLoaded:
		data := msg.data.(statsPayload)
		m.loading = false
		m.err = data.err
		if data.err == nil {
			m.combined = data.stats
			m.monthly = data.monthly
			m.table.SetRows(m.monthlyRows())
		}

	case MsgStudentsLoaded:
		data := msg.data.(studentsPayload)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		cmd := m.studentList.SetItems(studentItems(data.students))
		return m, cmd

	case MsgSummaryLoaded:
		data := msg.data.(summaryPayload)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.summary = data.summary
		m.view = SummaryView
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == StudentsView && m.studentList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.studentList, cmd = m.studentList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.tab):
		m.nextView()
		return m, nil
	}

	switch m.view {
	case StatsView, MonthlyView:
		if cmd, ok := m.handlePeriodKeys(msg); ok {
			return m, cmd
		}
	case StudentsView:
		return m.handleStudentKeys(msg)
	case SummaryView:
		if key.Matches(msg, m.keys.back) {
			m.view = StudentsView
			m.summary = nil
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

// handlePeriodKeys moves the reporting period and reloads. ok is false for keys it does not handle.
func (m *Model) handlePeriodKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.prevMonth):
		m.shiftMonth(-1)
	case key.Matches(msg, m.keys.nextMonth):
		m.shiftMonth(1)
	case key.Matches(msg, m.keys.prevYear):
		m.year--
	case key.Matches(msg, m.keys.nextYear):
		m.year++
	case key.Matches(msg, m.keys.wholeYear):
		if m.month == 0 {
			m.month = m.lastMonth
		} else {
			m.lastMonth = m.month
			m.month = 0
		}
	case key.Matches(msg, m.keys.refresh):
	default:
		return nil, false
	}

	m.loading = true
	return m.loadStats(), true
}

func (m *Model) handleStudentKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.studentList.SelectedItem().(studentItem); ok {
			return m, m.loadSummary(item.student.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadStudents()
	}

	var cmd tea.Cmd
	m.studentList, cmd = m.studentList.Update(msg)
	return m, cmd
}

// shiftMonth steps by delta months, or by delta years while the whole year is shown.
func (m *Model) shiftMonth(delta int) {
	if m.month == 0 {
		m.year += delta
		return
	}
	t := time.Date(m.year, m.month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	m.year, m.month = t.Year(), t.Month()
}

func (m *Model) nextView() {
	switch m.view {
	case StatsView:
		m.view = MonthlyView
	case MonthlyView:
		m.view = StudentsView
	default:
		m.view = StatsView
		m.summary = nil
	}
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MonthlyView:
		m.table, cmd = m.table.Update(msg)
	case StudentsView:
		m.studentList, cmd = m.studentList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadStats() tea.Cmd {
	period, year := m.Period(), m.year
	return func() tea.Msg {
		stats, err := m.stats.CombinedStats(m.ctx, period)
		if err != nil {
			return statsLoadedMsg(nil, nil, err)
		}
		monthly, err := m.stats.MonthlyPaymentsAndExpenses(m.ctx, year)
		return statsLoadedMsg(stats, monthly, err)
	}
}

func (m *Model) loadStudents() tea.Cmd {
	return func() tea.Msg {
		students, err := m.students.List(m.ctx, nil)
		return studentsLoadedMsg(students, err)
	}
}

func (m *Model) loadSummary(id string) tea.Cmd {
	return func() tea.Msg {
		summary, err := m.stats.StudentSummary(m.ctx, id)
		return summaryLoadedMsg(summary, err)
	}
}

func (m *Model) money(f float64) string { return shared.FormatMoney(f, m.currency) }

func (m *Model) monthlyRows() []table.Row {
	rows := make([]table.Row, len(m.monthly))
	for i, mt := range m.monthly {
		rows[i] = table.Row{mt.Label, m.money(mt.Payments), m.money(mt.Expenses), m.money(mt.Net)}
	}
	return rows
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	switch m.view {
	case StatsView:
		b.WriteString(m.renderStats())
	case MonthlyView:
		b.WriteString(m.renderMonthly())
	case StudentsView:
		b.WriteString(m.studentList.View())
	case SummaryView:
		b.WriteString(m.renderSummary())
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		active := ViewState(i) == m.view || (m.view == SummaryView && ViewState(i) == StudentsView)
		if active {
			tabs[i] = styles.ok.Render("[" + name + "]")
		} else {
			tabs[i] = styles.muted.Render(" " + name + " ")
		}
	}

	title := m.school
	if title == "" {
		title = "Encore"
	}
	return styles.title.Render(title) + "\n" + strings.Join(tabs, " ")
}

func (m *Model) renderStats() string {
	period := styles.title.Render(m.Period().Label())
	if m.loading && m.combined == nil {
		return period + "\n" + styles.help.Render("Loading...")
	}
	s := m.combined
	if s == nil {
		return period
	}

	change := func(f float64, suffix string, higherIsBetter bool) string {
		if s.Previous == nil {
			return ""
		}
		return "\n" + styles.signed(f, suffix, higherIsBetter) + styles.muted.Render(" vs "+s.Previous.Label)
	}

	cards := []string{
		styles.card.Render(fmt.Sprintf("Students\n%d active\n%d new this period%s",
			s.Students.Active, s.Students.New, change(s.Change.NewStudents, "%", true))),
		styles.card.Render(fmt.Sprintf("Attendance\n%.1f%%\n%d present, %d absent%s",
			s.Attendance.Rate, s.Attendance.Present, s.Attendance.Absent, change(s.Change.AttendanceRate, " pts", true))),
		styles.card.Render(fmt.Sprintf("Fees collected\n%s\n%s due%s",
			m.money(s.Payments.Collected), m.money(s.Payments.Outstanding), change(s.Change.Collected, "%", true))),
		styles.card.Render(fmt.Sprintf("Expenses\n%s\n%s pending%s",
			m.money(s.Expenses.Total), m.money(s.Expenses.Pending), change(s.Change.Expenses, "%", false))),
		styles.card.Render(fmt.Sprintf("Net income\n%s%s",
			m.net(s.NetIncome), change(s.Change.NetIncome, "%", true))),
	}

	var b strings.Builder
	b.WriteString(period)
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderInstruments(s), "    ", m.renderCategories(s)))
	return b.String()
}

func (m *Model) net(f float64) string {
	if f < 0 {
		return styles.err.Render(m.money(f))
	}
	return styles.ok.Render(m.money(f))
}

func (m *Model) renderInstruments(s *tasks.CombinedStats) string {
	lines := []string{styles.warn.Render("Active students by instrument")}
	for _, inst := range models.Instruments() {
		if n := s.Students.ByInstrument[inst]; n > 0 {
			lines = append(lines, fmt.Sprintf("%-12s %3d", inst.Label(), n))
		}
	}
	if len(lines) == 1 {
		lines = append(lines, styles.muted.Render("No active students."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderCategories(s *tasks.CombinedStats) string {
	lines := []string{styles.warn.Render("Expenses by category")}
	for _, c := range models.ExpenseCategories() {
		if amount := s.Expenses.ByCategory[c]; amount > 0 {
			lines = append(lines, fmt.Sprintf("%-24s %s", c.Label(), m.money(amount)))
		}
	}
	if len(lines) == 1 {
		lines = append(lines, styles.muted.Render("No expenses."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderMonthly() string {
	title := styles.title.Render(fmt.Sprintf("Payments and expenses, %d", m.year))
	if len(m.monthly) == 0 {
		return title + "\n" + styles.help.Render("Loading...")
	}

	var payments, expenses float64
	for _, mt := range m.monthly {
		payments += mt.Payments
		expenses += mt.Expenses
	}
	total := fmt.Sprintf("Year: %s collected, %s spent, net %s",
		m.money(payments), m.money(expenses), m.net(payments-expenses))
	return title + "\n" + m.table.View() + "\n" + total
}

func (m *Model) renderSummary() string {
	s := m.summary
	if s == nil || s.Student == nil {
		return styles.muted.Render("No student selected.")
	}
	st := s.Student

	status := styles.As("Active", lipgloss.Color("#04B575"))
	if !st.Active {
		status = styles.As("Inactive", lipgloss.Color("#FF4D4F"))
	}

	lines := []string{
		styles.title.Render(fmt.Sprintf("%s (#%d)", st.Name, st.RollNumber)),
		fmt.Sprintf("Status:      %s", status),
		fmt.Sprintf("Email:       %s", st.Email),
		fmt.Sprintf("Instrument:  %s, %s", st.Instrument.Label(), st.Grade.Label()),
		fmt.Sprintf("Class:       %s, %s", st.Batch.Label(), st.Timing.Label()),
		fmt.Sprintf("Joined:      %s", st.JoinedOn.Format("02 Jan 2006")),
		"",
		fmt.Sprintf("Attendance:  %.1f%% (%d of %d classes)", s.Attendance.Rate, s.Attendance.Present, s.Attendance.Total),
		fmt.Sprintf("Fees paid:   %s", m.money(s.Paid)),
	}
	if s.LastAttended != nil {
		lines = append(lines, fmt.Sprintf("Last class:  %s", s.LastAttended.Format("02 Jan 2006")))
	}
	if s.Due > 0 {
		lines = append(lines, styles.warn.Render(fmt.Sprintf("Fees due:    %s", m.money(s.Due))))
	}
	return strings.Join(lines, "\n")
}

func formatSigned(f float64) string { return fmt.Sprintf("%+.1f", f) }
