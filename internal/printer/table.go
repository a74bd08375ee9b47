package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/agentrelay/relay/internal/model"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints task summaries in a table format.
func (t *TablePrinter) PrintList(tasks []model.TaskSummary) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS")

	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", task.ID, task.Title, task.Status)
	}

	return nil
}

// PrintStatus prints detailed task status.
func (t *TablePrinter) PrintStatus(task model.TaskState) error {
	fmt.Fprintf(t.writer, "ID:          %s\n", task.ID)
	fmt.Fprintf(t.writer, "Title:       %s\n", task.Title)
	fmt.Fprintf(t.writer, "Status:      %s\n", task.Status)
	fmt.Fprintf(t.writer, "Version:     %d\n", task.Version)
	fmt.Fprintf(t.writer, "Phase:       %s\n", task.Progress.Phase)
	fmt.Fprintf(t.writer, "Progress:    %d%%\n", task.Progress.PercentComplete)

	if task.GitHub.TargetRepo != "" {
		fmt.Fprintf(t.writer, "Repository:  %s\n", task.GitHub.TargetRepo)
	}
	if task.GitHub.IssueNumber != 0 {
		fmt.Fprintf(t.writer, "Issue:       #%d\n", task.GitHub.IssueNumber)
	}
	if task.Session.ID != "" {
		fmt.Fprintf(t.writer, "Session:     %s\n", task.Session.ID)
	}

	fmt.Fprintf(t.writer, "Handoffs:    %d\n", len(task.Handoffs))
	fmt.Fprintf(t.writer, "Files:       %d\n", len(task.Files))
	fmt.Fprintf(t.writer, "Messages:    %d\n", len(task.Messages))
	fmt.Fprintf(t.writer, "Created:     %s\n", FormatTimestamp(task.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:     %s\n", TimeAgo(task.UpdatedAt))

	if task.Error != "" {
		fmt.Fprintf(t.writer, "Error:       %s\n", task.Error)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
