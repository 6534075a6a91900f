package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadDue Phase = iota
	SendReminders
	ReminderSent
	ReminderFailed
	ReminderSkipped
)

func (p Phase) String() string {
	switch p {
	case LoadDue:
		return "load_due"
	case SendReminders:
		return "send_reminders"
	case ReminderSent:
		return "reminder_sent"
	case ReminderFailed:
		return "reminder_failed"
	case ReminderSkipped:
		return "reminder_skipped"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadDueUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadDue,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d due payment(s)", count),
	}
}

func sendingUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SendReminders,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Sending reminders to %d student(s)...", total),
	}
}

func outcomeUpdate(step, total int, o ReminderOutcome) ProgressUpdate {
	update := ProgressUpdate{Step: step, Total: total, Data: o}
	switch {
	case o.Err != nil:
		update.Phase = ReminderFailed
		update.Message = fmt.Sprintf("Failed to remind %s: %v", o.Name, o.Err)
	case o.Skipped != "":
		update.Phase = ReminderSkipped
		update.Message = fmt.Sprintf("Skipped %s: %s", o.Name, o.Skipped)
	default:
		update.Phase = ReminderSent
		update.Message = fmt.Sprintf("Reminded %s (%d fee(s))", o.Name, o.Items)
	}
	return update
}
