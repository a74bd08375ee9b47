// Package prompt renders task state into the text artifacts an agent session
// consumes. Every function here is a pure render over a state snapshot, no
// I/O and no mutation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/agentrelay/relay/internal/model"
)

// SystemPrompt renders the role framing for an agent turn. The suffix lets
// callers append deployment-specific instructions.
func SystemPrompt(task *model.TaskState, suffix string) string {
	var b strings.Builder

	b.WriteString("You are an autonomous coding agent working on a long-running task ")
	b.WriteString("that may be handed off between agent sessions.\n\n")
	fmt.Fprintf(&b, "Task ID: %s\n", task.ID)
	fmt.Fprintf(&b, "Repository: %s\n", task.GitHub.TargetRepo)
	if task.GitHub.TargetBranch != "" {
		fmt.Fprintf(&b, "Branch: %s\n", task.GitHub.TargetBranch)
	}
	b.WriteString("\nRecord your progress, file changes and next steps through the ")
	b.WriteString("provided tools so the task can be resumed by another session at any point.")

	if suffix != "" {
		b.WriteString("\n\n")
		b.WriteString(suffix)
	}

	return b.String()
}

// ResumptionPrompt renders the context a continuing agent needs to pick the
// task up. Sections are only included when they have backing data.
func ResumptionPrompt(task *model.TaskState, additionalInstructions string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are resuming task %q.\n\n", task.Title)
	fmt.Fprintf(&b, "Status: %s\n", task.Status)
	if task.Progress.Phase != "" {
		fmt.Fprintf(&b, "Phase: %s\n", task.Progress.Phase)
	}
	fmt.Fprintf(&b, "Progress: %d%%\n", task.Progress.PercentComplete)

	if cp := task.LastCheckpoint(); cp != nil {
		b.WriteString("\n## Last checkpoint\n")
		if cp.Description != "" {
			b.WriteString(cp.Description + "\n")
		}
		writeList(&b, "Completed steps", cp.CompletedSteps)
		writeList(&b, "Remaining steps", cp.RemainingSteps)
	} else {
		b.WriteString("\nNo checkpoints have been recorded yet.\n")
	}

	if len(task.Files) > 0 {
		b.WriteString("\n## Modified files\n")
		for _, f := range task.Files {
			fmt.Fprintf(&b, "- %s (%s)", f.Path, f.Action)
			if f.Summary != "" {
				fmt.Fprintf(&b, ": %s", f.Summary)
			}
			b.WriteString("\n")
		}
	}

	writeSection(&b, "Immediate next steps", task.NextSteps.Immediate)
	writeSection(&b, "Considerations", task.NextSteps.Considerations)
	writeSection(&b, "Blockers", task.NextSteps.Blockers)

	if h := task.LastHandoff(); h != nil &&
		h.Instructions != "" && h.Instructions != model.InitialHandoffInstructions {
		b.WriteString("\n## Handoff instructions\n")
		b.WriteString(h.Instructions + "\n")
	}

	if task.CompactedSummary != "" {
		b.WriteString("\n## Earlier conversation (compacted)\n")
		b.WriteString(task.CompactedSummary + "\n")
	}

	if additionalInstructions != "" {
		b.WriteString("\n## Additional instructions\n")
		b.WriteString(additionalInstructions + "\n")
	}

	return b.String()
}

// HandoffSummary renders the briefing the next agent receives when a handoff
// is initiated.
func HandoffSummary(task *model.TaskState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Handoff summary for %q\n\n", task.Title)

	h := task.LastHandoff()
	if h != nil && h.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", h.Reason)
	}
	fmt.Fprintf(&b, "Phase: %s (%d%%)\n", task.Progress.Phase, task.Progress.PercentComplete)

	var completed []string
	for _, cp := range task.Progress.Checkpoints {
		completed = append(completed, cp.CompletedSteps...)
	}
	writeSection(&b, "Work completed so far", completed)

	if len(task.Files) > 0 {
		b.WriteString("\n## Modified files\n")
		for _, f := range task.Files {
			fmt.Fprintf(&b, "- %s (%s)\n", f.Path, f.Action)
		}
	}

	writeSection(&b, "Immediate next steps", task.NextSteps.Immediate)
	writeSection(&b, "Blockers", task.NextSteps.Blockers)

	if h != nil && h.Instructions != "" && h.Instructions != model.InitialHandoffInstructions {
		b.WriteString("\n## Instructions for the next agent\n")
		b.WriteString(h.Instructions + "\n")
	}

	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
