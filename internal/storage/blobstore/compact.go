package blobstore

import (
	"fmt"
	"strings"

	"github.com/agentrelay/relay/internal/model"
)

const (
	// compactionThreshold is the message count above which the history gets
	// compacted.
	compactionThreshold = 50
	// compactionRetain is the number of most recent messages kept verbatim.
	compactionRetain = 20
	// digestLength is the number of content characters kept per folded message.
	digestLength = 100
)

// compactHistory folds the oldest conversation messages into the compacted
// summary when the history grows past the threshold. Compaction is lossy and
// one-directional, folded messages are only retained as digest lines.
func compactHistory(t *model.TaskState) {
	if len(t.Messages) <= compactionThreshold {
		return
	}

	cut := len(t.Messages) - compactionRetain
	folded := t.Messages[:cut]

	lines := make([]string, 0, len(folded))
	for _, msg := range folded {
		lines = append(lines, digestLine(msg))
	}

	summary := strings.Join(lines, "\n")
	if t.CompactedSummary != "" {
		t.CompactedSummary = t.CompactedSummary + "\n---\n" + summary
	} else {
		t.CompactedSummary = summary
	}

	t.Messages = append([]model.Message{}, t.Messages[cut:]...)
}

func digestLine(msg model.Message) string {
	content := msg.Content
	// Cut on rune boundaries, splitting a multi-byte character would leave
	// invalid UTF-8 in the summary.
	if runes := []rune(content); len(runes) > digestLength {
		content = string(runes[:digestLength]) + "..."
	}
	return fmt.Sprintf("[%s]: %s", msg.Role, content)
}
