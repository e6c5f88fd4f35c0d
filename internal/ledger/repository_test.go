package ledger

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The view queries join three tables; every aliased column they reference
// must exist in the shipped DDL or the statements fail to prepare.
func TestBalanceViewColumnsExistInSchema(t *testing.T) {
	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)

	tables := map[string]map[string]bool{
		"b":  schemaColumns(t, string(ddl), "inventory_balances"),
		"it": schemaColumns(t, string(ddl), "items"),
		"l":  schemaColumns(t, string(ddl), "locations"),
	}

	refs := regexp.MustCompile(`\b(b|it|l)\.(\w+)`).FindAllStringSubmatch(balanceViewColumns, -1)
	require.NotEmpty(t, refs)
	for _, ref := range refs {
		alias, column := ref[1], ref[2]
		require.True(t, tables[alias][column], "column %s.%s is not in the schema", alias, column)
	}
}

func schemaColumns(t *testing.T, ddl, table string) map[string]bool {
	t.Helper()
	body := regexp.MustCompile(`(?s)CREATE TABLE ` + table + ` \((.*?)\n\);`).FindStringSubmatch(ddl)
	require.Len(t, body, 2, "table %s missing from migration", table)

	columns := map[string]bool{}
	for _, line := range strings.Split(body[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "PRIMARY", "FOREIGN", "UNIQUE", "CHECK", "CONSTRAINT":
			continue
		}
		columns[fields[0]] = true
	}
	return columns
}
