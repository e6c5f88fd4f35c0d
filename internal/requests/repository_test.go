package requests

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestColumnsExistInSchema(t *testing.T) {
	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	body := regexp.MustCompile(`(?s)CREATE TABLE item_requests \((.*?)\n\);`).FindStringSubmatch(string(ddl))
	require.Len(t, body, 2)

	columns := map[string]bool{}
	for _, line := range strings.Split(body[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			columns[fields[0]] = true
		}
	}
	require.True(t, columns["priority"])
	require.True(t, columns["reason"])
	for _, name := range regexp.MustCompile(`[a-z_]+`).FindAllString(requestColumns, -1) {
		require.True(t, columns[name], "column %s is not in the schema", name)
	}
}
