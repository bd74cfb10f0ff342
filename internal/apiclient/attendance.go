package apiclient

import "fmt"

// RecordAttendance manually records attendance for a person
func (c *Client) RecordAttendance(req AttendanceRecordRequest) (*AttendanceRecorded, error) {
	return doPostJSON[AttendanceRecorded](c, "attendance/record", req)
}

// GetAttendanceSummary retrieves the per-person summary for a day.
// An empty date means today (server local time).
func (c *Client) GetAttendanceSummary(date string) (*AttendanceSummary, error) {
	endpoint := "attendance/summary"
	if date != "" {
		endpoint += "?date=" + date
	}
	return doGetJSON[AttendanceSummary](c, endpoint)
}

// GetAttendanceRecords retrieves attendance rows, newest first.
// An empty date returns records for all days; limit 0 uses the server default.
func (c *Client) GetAttendanceRecords(date string, limit int) (*AttendanceRecords, error) {
	endpoint := "attendance/records"
	sep := "?"
	if date != "" {
		endpoint += sep + "date=" + date
		sep = "&"
	}
	if limit > 0 {
		endpoint += sep + fmt.Sprintf("limit=%d", limit)
	}
	return doGetJSON[AttendanceRecords](c, endpoint)
}
