package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func schemaFor(t *testing.T, table string) string {
	t.Helper()
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			return stmt
		}
	}
	t.Fatalf("no schema statement for table %s", table)
	return ""
}

// The audit writer inserts these columns by name; the table has to declare
// every one of them or each write fails with an undefined-column error.
func TestAuditLogSchemaMatchesWriterColumns(t *testing.T) {
	ddl := schemaFor(t, "audit_logs")
	for _, column := range []string{"actor", "action", "entity", "entity_id", "meta", "occurred_at"} {
		require.Contains(t, ddl, column, "audit_logs is missing column %s", column)
	}
}

func TestFixedAssetSchemaCarriesPostingWatermark(t *testing.T) {
	ddl := schemaFor(t, "fixed_assets")
	require.Contains(t, ddl, "posted_depreciation NUMERIC(18,2) NOT NULL DEFAULT 0")
	require.Contains(t, ddl, "accumulated_depreciation NUMERIC(18,2) NOT NULL DEFAULT 0")
}
