package status

import (
	"fmt"

	"github.com/fatih/color"
)

// Formatter renders per-file and progress messages for the console.
type Formatter interface {
	FormatFile(path string, status SyncStatus) string
	FormatProgress(current, total int) string
	FormatError(err error) string
}

// ConsoleFormatter is the default emoji/color formatter.
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a ConsoleFormatter.
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatFile formats a per-file status line.
func (f *ConsoleFormatter) FormatFile(path string, status SyncStatus) string {
	switch status {
	case StatusNew:
		return fmt.Sprintf("✨ New %s", path)
	case StatusModified:
		return fmt.Sprintf("📝 Modified %s", path)
	case StatusPublished:
		return fmt.Sprintf("📤 Published %s", path)
	case StatusVerified:
		return fmt.Sprintf("✅ Verified %s", color.GreenString(path))
	case StatusFailed:
		return fmt.Sprintf("❌ Failed %s", color.RedString(path))
	default:
		return fmt.Sprintf("👍 Unchanged %s", path)
	}
}

// FormatProgress formats a progress message with percentage.
func (f *ConsoleFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatError formats an error message.
func (f *ConsoleFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
