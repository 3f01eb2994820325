// ABOUTME: Relative-age formatting for message timestamps
// ABOUTME: Produces the human labels shown next to previews and inbox rows

package chat

import (
	"fmt"
	"time"
)

// FormatRelativeAge renders the age of a message as a human label.
// Anything under one minute is "agora"; older messages floor to whole
// minutes as "há N minutos".
func FormatRelativeAge(createdAt int64, now time.Time) string {
	elapsed := now.Sub(time.UnixMilli(createdAt))
	if elapsed < time.Minute {
		return "agora"
	}
	mins := int(elapsed / time.Minute)
	if mins == 1 {
		return "há 1 minuto"
	}
	return fmt.Sprintf("há %d minutos", mins)
}
