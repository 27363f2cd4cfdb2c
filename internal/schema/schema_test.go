package schema

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrint(t *testing.T) {
	cols := []Column{
		{Name: "hist_key_number", DataType: "character varying", MaxLength: sql.NullInt64{Int64: 20, Valid: true}},
		{Name: "period_start", DataType: "timestamp without time zone"},
	}

	var b strings.Builder
	Print(&b, "flex_billing_history", cols)
	out := b.String()

	assert.Contains(t, out, "flex_billing_history (2 columns)")
	assert.Contains(t, out, "hist_key_number")
	assert.Contains(t, out, "20")
	// Columns without a length cap show a dash.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], "-"))
}

func TestColumnsQuery_OrdersByPosition(t *testing.T) {
	assert.Contains(t, columnsQuery, "information_schema.columns")
	assert.Contains(t, columnsQuery, "ORDER BY ordinal_position")
}
