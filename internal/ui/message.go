package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStatsLoaded MsgKind = iota
	MsgStudentsLoaded
	MsgSummaryLoaded
)

type statsPayload struct {
	stats   *tasks.CombinedStats
	monthly []tasks.MonthlyTotal
	err     error
}

type studentsPayload struct {
	students []*models.Student
	err      error
}

type summaryPayload struct {
	summary *tasks.StudentSummary
	err     error
}

// statsLoadedMsg is the constructor for [MsgStatsLoaded]
func statsLoadedMsg(stats *tasks.CombinedStats, monthly []tasks.MonthlyTotal, err error) Msg {
	return Msg{kind: MsgStatsLoaded, data: statsPayload{stats, monthly, err}}
}

// studentsLoadedMsg is the constructor for [MsgStudentsLoaded]
func studentsLoadedMsg(students []*models.Student, err error) Msg {
	return Msg{kind: MsgStudentsLoaded, data: studentsPayload{students, err}}
}

// summaryLoadedMsg is the constructor for [MsgSummaryLoaded]
func summaryLoadedMsg(summary *tasks.StudentSummary, err error) Msg {
	return Msg{kind: MsgSummaryLoaded, data: summaryPayload{summary, err}}
}
