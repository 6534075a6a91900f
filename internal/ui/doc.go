// Package ui implements the school dashboard for the terminal using bubbletea's Elm architecture.
//
// The TUI has three views, cycled with tab:
//  1. [StatsView] : Period figures for students, attendance, fees and expenses
//  2. [MonthlyView] : A table of payments and expenses for each month of the year
//  3. [StudentsView] : A filterable student list; enter opens the [SummaryView] for a student
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving results via the Msg union type.
// Reports are loaded by commands that call a [StatsSource], so the interface never blocks on the database.
//
// Keyboard navigation uses vim-style bindings (h/l for months, [/] for years, j/k in lists) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
