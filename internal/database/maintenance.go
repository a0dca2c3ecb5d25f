package database

import (
	"context"
	"fmt"
	"strings"
)

// operational tables, children first
var truncatableTables = []string{
	"audit_logs",
	"notifications",
	"staff_performance",
	"signature_artifacts",
	"shift_assignments",
	"shifts",
}

// ClearShiftData truncates shift, assignment and notification data.
// Agencies, plans, subscriptions and worker profiles are kept.
func ClearShiftData(ctx context.Context, db DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(truncatableTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
