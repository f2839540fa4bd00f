package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/regholl2023/minitrade/internal/export"
	"github.com/regholl2023/minitrade/internal/model"
)

// FormatSpotReport renders a captured spot snapshot as a mail subject and body.
func FormatSpotReport(source string, spot *model.Spot) (string, string) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Source: %s\n\n", source))
	export.WriteSpotTable(&b, spot)

	open := 0
	for _, q := range spot.Quotes {
		if q.Price != nil {
			open++
		}
	}
	b.WriteString(fmt.Sprintf("\n%d of %d markets open\n", open, len(spot.Quotes)))

	subject := fmt.Sprintf("[minitrade] %s spot %s", source, spot.CapturedAt.Format("2006-01-02 15:04"))
	return subject, b.String()
}

// FormatFailure renders a failed job run.
func FormatFailure(job string, at time.Time, err error) (string, string) {
	subject := fmt.Sprintf("[minitrade] %s failed", job)
	body := fmt.Sprintf("Job: %s\nTime: %s\nError: %v\n", job, at.Format(time.RFC3339), err)
	return subject, body
}
