package printer

import "github.com/agentrelay/relay/internal/model"

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintList(tasks []model.TaskSummary) error
	PrintStatus(task model.TaskState) error
	PrintMessage(msg string) error
}
