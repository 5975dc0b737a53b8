package engine

import (
	"fmt"
	"strings"
	"time"
)

// renderReport formats a run summary as markdown. The serve UI renders it
// to HTML; the stats command prints it verbatim.
func renderReport(r *RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Run %s\n\n", r.RunID)
	if r.Source != "" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", r.Source)
	}
	fmt.Fprintf(&b, "- Mode: **%s**\n", r.Mode)
	fmt.Fprintf(&b, "- Units scanned: %d\n", r.UnitsScanned)
	fmt.Fprintf(&b, "- Units processed: %d\n", r.UnitsProcessed)
	fmt.Fprintf(&b, "- Cache hits: %d (%.0f%%)\n", r.CacheHits, r.CacheHitRate*100)
	fmt.Fprintf(&b, "- Errors: %d\n", r.Errors)
	fmt.Fprintf(&b, "- Duration: %s\n", (time.Duration(r.DurationMs) * time.Millisecond).String())
	if r.ModelVersion != "" {
		fmt.Fprintf(&b, "- Model: %s\n", r.ModelVersion)
	}

	return b.String()
}
