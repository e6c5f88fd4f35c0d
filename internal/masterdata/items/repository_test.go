package items

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func itemsDDL(t *testing.T) string {
	t.Helper()
	ddl, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	body := regexp.MustCompile(`(?s)CREATE TABLE items \((.*?)\n\);`).FindStringSubmatch(string(ddl))
	require.Len(t, body, 2)
	return body[1]
}

func TestItemColumnsExistInSchema(t *testing.T) {
	ddl := itemsDDL(t)
	columns := map[string]bool{}
	for _, line := range strings.Split(ddl, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			columns[fields[0]] = true
		}
	}
	for _, name := range regexp.MustCompile(`[a-z_]+`).FindAllString(itemColumns, -1) {
		require.True(t, columns[name], "column %s is not in the schema", name)
	}
}

// SKU is optional; uniqueness is enforced only for items that carry one.
func TestItemSKUIsOptionalButUnique(t *testing.T) {
	ddl := itemsDDL(t)
	for _, line := range strings.Split(ddl, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "sku" {
			require.NotContains(t, line, "NOT NULL")
			require.NotContains(t, line, "UNIQUE")
		}
	}

	full, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	require.Regexp(t, `CREATE UNIQUE INDEX \w+ ON items \(sku\) WHERE sku IS NOT NULL`, string(full))
}
