package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/encore/internal/models"
)

var _ list.Item = studentItem{}

// studentItem wraps [models.Student] to implement [list.Item].
type studentItem struct {
	student *models.Student
}

func (i studentItem) FilterValue() string { return i.student.Name + " " + i.student.Email }
func (i studentItem) Title() string {
	if !i.student.Active {
		return fmt.Sprintf("%s (inactive)", i.student.Name)
	}
	return i.student.Name
}
func (i studentItem) Description() string {
	return fmt.Sprintf("#%d • %s • %s • %s",
		i.student.RollNumber, i.student.Instrument.Label(), i.student.Grade.Label(), i.student.Batch.Label())
}

func studentItems(students []*models.Student) []list.Item {
	items := make([]list.Item, len(students))
	for i, s := range students {
		items[i] = studentItem{student: s}
	}
	return items
}
