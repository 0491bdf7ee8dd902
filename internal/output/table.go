// Package output provides terminal output utilities for loom.
//
// This package includes:
//   - Table rendering for update history and backup artifacts
//   - A byte-level progress bar for downloads
//   - A spinner for indeterminate operations like the ledger query
//
// All table rendering uses ASCII characters and ANSI color codes for
// terminal output. Progress indicators are thread-safe.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/loomworks/loom/internal/store"
)

// ANSI color codes for outcome display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// outcomeColor maps a terminal outcome to a display color. Successful
// outcomes are green, recoveries yellow, failures red, the rest gray.
func outcomeColor(outcome string) string {
	switch outcome {
	case "committed", "up-to-date":
		return colorGreen
	case "rolled-back", "declined", "downgrade-rejected":
		return colorYellow
	case "trust-rejected", "aborted", "manual-intervention-required", "no-trusted-publisher":
		return colorRed
	default:
		return colorGray
	}
}

// RenderEventTable renders the update history, newest first as stored.
func RenderEventTable(events []*store.UpdateEvent) string {
	if len(events) == 0 {
		return "No update history recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-14s %-28s %-10s %-10s %s\n",
		"When", "Outcome", "From", "To", "Detail"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, e := range events {
		from := e.FromVersion
		if from == "" {
			from = "—"
		}
		to := e.ToVersion
		if to == "" {
			to = "—"
		}

		// Pad before coloring so the escape codes don't skew the column.
		outcome := colorize(outcomeColor(e.Outcome), fmt.Sprintf("%-28s", e.Outcome))

		sb.WriteString(fmt.Sprintf("%-14s %s %-10s %-10s %s\n",
			formatRelativeTime(e.Timestamp),
			outcome,
			from,
			to,
			truncate(e.Detail, 40)))
	}

	return sb.String()
}

// RenderBackupTable renders the registered backup artifacts.
func RenderBackupTable(backups []*store.Backup) string {
	if len(backups) == 0 {
		return "No backups found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-14s %-6s %s\n",
		"Version", "Created", "Via", "Artifact"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, b := range backups {
		sb.WriteString(fmt.Sprintf("%-10s %-14s %-6s %s\n",
			truncate(b.Version, 10),
			formatRelativeTime(b.CreatedAt),
			b.Mechanism,
			b.ArtifactPath))
	}

	return sb.String()
}

// formatSize formats a byte count using binary units.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime formats a timestamp relative to now.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate shortens s to maxLen, adding "..." when it cuts.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
