package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnaas-network/bridge/pkg/audit"
	"github.com/dnaas-network/bridge/pkg/settings"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query recorded audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		events, err := audit.Query(audit.Filter{Device: device, User: user, Limit: limit})
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}

		for _, e := range events {
			status := green("ok")
			if !e.Success {
				status = red("failed: " + e.Error)
			}
			fmt.Printf("%s  %-12s  %-20s  %-10s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Device, e.Operation, status)
		}
		return nil
	},
}

func init() {
	auditQueryCmd.Flags().String("device", "", "Filter by device")
	auditQueryCmd.Flags().String("user", "", "Filter by user")
	auditQueryCmd.Flags().Int("limit", 50, "Maximum number of events to return")
	auditCmd.AddCommand(auditQueryCmd)
}

// newAuditLogger opens the audit log file at path, using rotation settings
// from s.
func newAuditLogger(path string, s *settings.Settings) (*audit.FileLogger, error) {
	return audit.NewFileLogger(path, audit.RotationConfig{
		MaxSize:    int64(s.GetAuditMaxSizeMB()) * 1024 * 1024,
		MaxBackups: s.GetAuditMaxBackups(),
	})
}

func setAuditLogger(l *audit.FileLogger) {
	audit.SetDefaultLogger(l)
}

// logAuditEvent records a completed operation. Failures to write the audit
// log are logged but never fail the calling command — operational work
// must not be blocked by a full disk or unwritable log directory.
func logAuditEvent(user, device, operation string, err error) {
	ev := audit.NewEvent(user, device, operation)
	if err != nil {
		ev = ev.WithError(err)
	} else {
		ev = ev.WithSuccess()
	}
	if logErr := audit.Log(ev); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write audit log: %v\n", logErr)
	}
}
