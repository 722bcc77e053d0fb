package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budget/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// run executes budgetctl with args against a fresh flag state and returns
// what it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	backendName, dataDir, logLevel = "", "", "error"
	hashUser, hashSHA256, hashCost = "", false, 0
	importDryRun = false
	outboxTable = ""
	reportMonth, reportSort, reportDesc = "", "due_date", false

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(append(args, "--log-level", "error"))
	err := RootCmd.Execute()
	return out.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", path)
	t.Setenv("AMQP_URL", "")
	return path
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestHashPasswordSHA256(t *testing.T) {
	out, err := run(t, "", "hash-password", "--sha256", "--user", "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice:"+auth.HashSHA256("secret")+"\n", out)

	users, err := auth.ParseUsers(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.NoError(t, users.Verify("alice", "secret"))
}

func TestHashPasswordBcryptFromStdin(t *testing.T) {
	out, err := run(t, "hunter2\n", "hash-password", "--cost", "4")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestHashPasswordRejects(t *testing.T) {
	_, err := run(t, "\n", "hash-password")
	assert.Error(t, err)

	_, err = run(t, "", "hash-password", "--user", "a:b", "pw")
	assert.Error(t, err)
}

func TestImportDryRunWritesNothing(t *testing.T) {
	useSQLite(t)
	file := writeFile(t, "june.csv", "01/06/2024,2000,Income\n15/06/2024,500,Expense\n")

	out, err := run(t, "", "import", "--dry-run", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-06-15\tExpense\t500.00")
	assert.Contains(t, out, "Parsed 2 transactions, nothing written.")

	out, err = run(t, "", "report")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions yet.")
}

func TestImportThenReport(t *testing.T) {
	useSQLite(t)
	file := writeFile(t, "june.csv", "01/06/2024,2000,Income\n15/06/2024,500,Expense\n20/06/2024,120.50,expense\n")

	out, err := run(t, "", "import", file)
	require.NoError(t, err)
	assert.Equal(t, "Imported 3 transactions from june.csv.\n", out)

	out, err = run(t, "", "report", "--month", "2024-06")
	require.NoError(t, err)
	assert.Contains(t, out, "June 2024")
	assert.Contains(t, out, "$2,000.00")
	assert.Contains(t, out, "$620.50")
	assert.Contains(t, out, "+1,379.50")

	out, err = run(t, "", "outbox")
	require.NoError(t, err)
	assert.Regexp(t, `Transactions\s+3\s+0\s+0`, out)
	assert.Regexp(t, `Bills\s+0\s+0\s+0`, out)

	out, err = run(t, "", "outbox", "--table", "bills")
	require.NoError(t, err)
	assert.Regexp(t, `Bills\s+0\s+0\s+0`, out)
	assert.NotContains(t, out, "Transactions")

	_, err = run(t, "", "outbox", "--table", "payments")
	assert.ErrorContains(t, err, "unknown table")
}

func TestImportRejectsMalformedFile(t *testing.T) {
	useSQLite(t)
	file := writeFile(t, "bad.csv", "01/06/2024,2000,Income\n15/06/2024,lots,Expense\n")

	_, err := run(t, "", "import", file)
	require.Error(t, err)

	out, err := run(t, "", "report")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions yet.")
}

func TestReportFallsBackToFirstMonth(t *testing.T) {
	useSQLite(t)
	file := writeFile(t, "may.csv", "03/05/2024,40,Expense\n")
	_, err := run(t, "", "import", file)
	require.NoError(t, err)

	out, err := run(t, "", "report", "--month", "2023-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions in January 2023, showing May 2024.")
}

func TestReportRejectsBadMonth(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "", "report", "--month", "June")
	assert.ErrorContains(t, err, "invalid --month")
}

func TestUnknownBackend(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "", "report", "--backend", "postgres")
	assert.Error(t, err)
}
