// package tasks implements the reporting and batch jobs of the school.
//
// [StatsEngine] reduces attendance, payment and expense rows into the figures shown on the admin dashboard,
// the terminal dashboard and the report command. [Reminders] emails fee reminders for overdue payments through a
// rate-limited worker pool.
//
// Long-running operations emit [ProgressUpdate] values over a channel for non-blocking status reporting to CLI
// and UI layers.
package tasks
