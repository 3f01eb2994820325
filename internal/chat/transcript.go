// ABOUTME: Plain-text transcript export for a conversation's message log
// ABOUTME: One line per message in log order, visitor lines use the display name

package chat

import (
	"fmt"
	"strings"
)

// operatorLabel is the name shown for operator turns in exported transcripts.
const operatorLabel = "Support"

// Transcript renders the conversation as a line-oriented plain-text log:
//
//	[<time>] <DisplayName-or-Support>: <body>
//
// Lines appear in log order, newline-joined.
func Transcript(c *Conversation) string {
	var b strings.Builder
	for i, m := range c.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := operatorLabel
		if m.Sender == SenderVisitor {
			name = c.DisplayName
		}
		fmt.Fprintf(&b, "[%s] %s: %s", m.Time().Format("3:04 PM"), name, m.Body)
	}
	return b.String()
}
