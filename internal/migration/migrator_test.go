package migration_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/database/dbtest"
)

func readInit(t *testing.T, dialect string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("sql", dialect, "00001_init.sql"))
	require.NoError(t, err)
	return string(raw)
}

func TestMySQLIdentifiersCompareCaseSensitively(t *testing.T) {
	schema := readInit(t, "mysql")

	for _, column := range []string{"username", "customer_code", "supplier_code", "item_code"} {
		re := regexp.MustCompile(`(?m)^\s*` + column + `\s+VARCHAR\(\d+\)[^,\n]*COLLATE utf8mb4_bin`)
		assert.Regexp(t, re, schema, column)
	}
}

func TestLogDetailsFitsLongestLabel(t *testing.T) {
	// item name + " for " + customer name, both up to 255 characters.
	const longest = 255 + len(" for ") + 255
	re := regexp.MustCompile(`log_details VARCHAR\((\d+)\)`)

	for _, dialect := range []string{"mysql", "postgres", "sqlite"} {
		m := re.FindStringSubmatch(readInit(t, dialect))
		require.Len(t, m, 2, dialect)
		width, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, width, longest, dialect)
	}
}

func TestOrdersReferenceProductsAndCustomers(t *testing.T) {
	conns := dbtest.Open(t)
	ctx := context.Background()

	_, err := conns.Writer.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = conns.Writer.ExecContext(ctx, "INSERT INTO orders (item_id, customer_id, quantity) VALUES (999, 999, 1)")
	assert.Error(t, err, "orders must point at existing rows")

	_, err = conns.Writer.ExecContext(ctx, "INSERT INTO customers (customer_name, customer_code) VALUES ('Acme', 'ACME')")
	require.NoError(t, err)
	_, err = conns.Writer.ExecContext(ctx, "INSERT INTO products (item_name, item_code) VALUES ('Widget', 'W1')")
	require.NoError(t, err)
	_, err = conns.Writer.ExecContext(ctx, "INSERT INTO orders (item_id, customer_id, quantity) VALUES (1, 1, 1)")
	assert.NoError(t, err)
}
