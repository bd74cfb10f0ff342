// Package report renders attendance day summaries for export.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attend/internal/database"
)

// Format selects the output encoding of an attendance report.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want csv or markdown)", s)
	}
}

// Filename suggests an export file name for a day report.
func Filename(format Format, date string) string {
	ext := "csv"
	if format == FormatMarkdown {
		ext = "md"
	}
	return fmt.Sprintf("attendance_%s.%s", date, ext)
}

// Render produces the day report in the requested format. Rows are rendered
// in the order given; the summary query already sorts by detection count.
func Render(format Format, date string, rows []database.AttendanceSummaryRow) ([]byte, error) {
	switch format {
	case FormatCSV:
		return renderCSV(rows)
	case FormatMarkdown:
		return []byte(renderMarkdown(date, rows)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func renderCSV(rows []database.AttendanceSummaryRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"person_name", "total_detections", "average_confidence"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.PersonName,
			strconv.Itoa(row.TotalDetections),
			strconv.FormatFloat(row.AverageConfidence, 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderMarkdown(date string, rows []database.AttendanceSummaryRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Attendance %s\n\n", date)

	if len(rows) == 0 {
		b.WriteString("No attendance recorded.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Total people: %d\n\n", len(rows))
	b.WriteString("| Person | Detections | Avg. confidence |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %d | %.2f |\n",
			escapePipes(row.PersonName), row.TotalDetections, row.AverageConfidence)
	}
	return b.String()
}

// escapePipes keeps person names from breaking the markdown table.
func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
