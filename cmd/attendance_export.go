package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/report"
)

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a day summary to a file",
	Long: `Renders the attendance summary for one day as CSV or Markdown and writes
it to a file. With --encrypt the file is sealed with ENCRYPTION_PASSWORD and
can only be read back through the same passphrase.`,
	RunE: runAttendanceExport,
}

func init() {
	attendanceCmd.AddCommand(attendanceExportCmd)

	attendanceExportCmd.Flags().String("format", "csv", "Output format: csv or markdown")
	attendanceExportCmd.Flags().StringP("output", "o", "", "Output file (default attendance_<date>.<ext>)")
	attendanceExportCmd.Flags().Bool("encrypt", false, "Seal the file with ENCRYPTION_PASSWORD")
}

func runAttendanceExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	serverURL := mustGetString(cmd, "server")
	date := mustGetString(cmd, "date")
	output := mustGetString(cmd, "output")
	encrypt := mustGetBool(cmd, "encrypt")
	if err := validDate(date); err != nil {
		return err
	}

	format, err := report.ParseFormat(mustGetString(cmd, "format"))
	if err != nil {
		return err
	}

	resolved, rows, err := summaryRows(cfg, serverURL, date)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no attendance recorded on %s, nothing to export", resolved)
	}

	data, err := report.Render(format, resolved, rows)
	if err != nil {
		return err
	}

	if output == "" {
		output = report.Filename(format, resolved)
		if encrypt {
			output += ".enc"
		}
	}

	if encrypt {
		codec, err := buildCodec(cfg)
		if err != nil {
			return err
		}
		if codec == nil {
			return fmt.Errorf("cannot encrypt: encryption is disabled")
		}
		data, err = codec.SealBytes(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt report: %w", err)
		}
	}

	if err := os.WriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("Exported %d people for %s to %s\n", len(rows), resolved, output)
	return nil
}
