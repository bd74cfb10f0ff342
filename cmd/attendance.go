package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/apiclient"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Query and export attendance",
	Long: `Commands for reading the attendance log: per-day summaries, raw records
and file exports. With --server the data comes from a running Face Attend
server, otherwise straight from the database.`,
}

var attendanceSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the per-person summary for one day",
	RunE:  runAttendanceSummary,
}

var attendanceRecordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List attendance records, newest first",
	RunE:  runAttendanceRecords,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceSummaryCmd)
	attendanceCmd.AddCommand(attendanceRecordsCmd)

	attendanceCmd.PersistentFlags().String("server", "", "Read via a running server (e.g. http://localhost:5000)")
	attendanceCmd.PersistentFlags().String("date", "", "Day to query as YYYY-MM-DD (default today)")

	attendanceRecordsCmd.Flags().Int("limit", 0, "Maximum records to list (0 = server default)")
}

// validDate rejects dates that are not YYYY-MM-DD. An empty date is allowed
// and means "today" to every consumer.
func validDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}

// summaryRows fetches a day summary from a running server or straight from
// the repository. Returns the resolved date alongside the rows.
func summaryRows(cfg *config.Config, serverURL, date string) (string, []database.AttendanceSummaryRow, error) {
	if serverURL != "" {
		client, err := apiclient.NewWithCapture(serverURL, cfg.Security.APIToken, captureDir)
		if err != nil {
			return "", nil, err
		}
		summary, err := client.GetAttendanceSummary(date)
		if err != nil {
			return "", nil, fmt.Errorf("failed to fetch summary: %w", err)
		}
		rows := make([]database.AttendanceSummaryRow, len(summary.Summary))
		for i, e := range summary.Summary {
			rows[i] = database.AttendanceSummaryRow{
				PersonName:        e.PersonName,
				TotalDetections:   e.TotalDetections,
				AverageConfidence: e.AverageConfidence,
			}
		}
		return summary.Date, rows, nil
	}

	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if err := initDatabase(cfg); err != nil {
		return "", nil, err
	}
	store, err := database.GetAttendanceStore()
	if err != nil {
		return "", nil, err
	}
	rows, err := store.AttendanceSummary(context.Background(), date)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load summary: %w", err)
	}
	return date, rows, nil
}

func runAttendanceSummary(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	serverURL := mustGetString(cmd, "server")
	date := mustGetString(cmd, "date")
	if err := validDate(date); err != nil {
		return err
	}

	resolved, rows, err := summaryRows(cfg, serverURL, date)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Printf("No attendance recorded on %s.\n", resolved)
		return nil
	}

	fmt.Printf("Attendance %s\n\n", resolved)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tDETECTIONS\tAVG CONFIDENCE")
	fmt.Fprintln(w, "------\t----------\t--------------")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", row.PersonName, row.TotalDetections, row.AverageConfidence)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d people\n", len(rows))
	return nil
}

func runAttendanceRecords(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	serverURL := mustGetString(cmd, "server")
	date := mustGetString(cmd, "date")
	limit := mustGetInt(cmd, "limit")
	if err := validDate(date); err != nil {
		return err
	}

	type row struct {
		person     string
		date       string
		detections int
		avg        float64
		firstSeen  time.Time
		lastSeen   time.Time
		location   string
	}
	var rows []row

	if serverURL != "" {
		client, err := apiclient.NewWithCapture(serverURL, cfg.Security.APIToken, captureDir)
		if err != nil {
			return err
		}
		records, err := client.GetAttendanceRecords(date, limit)
		if err != nil {
			return fmt.Errorf("failed to fetch records: %w", err)
		}
		for _, r := range records.Records {
			rows = append(rows, row{r.PersonName, r.AttendanceDate, r.DetectionCount,
				r.AverageConfidence, r.FirstSeen, r.LastSeen, r.Location})
		}
	} else {
		if err := initDatabase(cfg); err != nil {
			return err
		}
		store, err := database.GetAttendanceStore()
		if err != nil {
			return err
		}
		records, err := store.ListAttendance(context.Background(), date, limit)
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}
		for _, r := range records {
			rows = append(rows, row{r.PersonName, r.AttendanceDate, r.DetectionCount,
				r.AverageConfidence(), r.FirstSeen, r.LastSeen, r.Location})
		}
	}

	if len(rows) == 0 {
		fmt.Println("No attendance records found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tDATE\tDETECTIONS\tAVG CONF\tFIRST SEEN\tLAST SEEN\tLOCATION")
	fmt.Fprintln(w, "------\t----\t----------\t--------\t----------\t---------\t--------")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\t%s\t%s\n",
			r.person, r.date, r.detections, r.avg,
			r.firstSeen.Format(time.TimeOnly), r.lastSeen.Format(time.TimeOnly), r.location)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d records\n", len(rows))
	return nil
}
