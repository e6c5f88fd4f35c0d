package budgets

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBudgetColumnsExistInSchema(t *testing.T) {
	ddl, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	body := regexp.MustCompile(`(?s)CREATE TABLE budgets \((.*?)\n\);`).FindStringSubmatch(string(ddl))
	require.Len(t, body, 2)

	columns := map[string]bool{}
	for _, line := range strings.Split(body[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			columns[fields[0]] = true
		}
	}
	require.True(t, columns["location_id"], "budgets must be location-scoped")
	for _, name := range regexp.MustCompile(`[a-z_]+`).FindAllString(budgetColumns, -1) {
		require.True(t, columns[name], "column %s is not in the schema", name)
	}
}

func TestRemaining(t *testing.T) {
	b := Budget{
		TotalAmount: decimal.RequireFromString("1000.00"),
		SpentAmount: decimal.RequireFromString("250.50"),
	}
	require.True(t, b.Remaining().Equal(decimal.RequireFromString("749.50")))
}
