package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/jobs"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movimientos.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestStageCommandJSON(t *testing.T) {
	path := writeCSV(t, "sku;almacen;cantidad;fecha\nSKU-1;Central;10;2024-03-01\n;Central;2;2024-03-01\n")
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := StageCommand(StageOptions{Path: path, Kind: "movements", CompanyID: "acme", JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Equal(t, 10, code, stderr.String())

	var result dataimport.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	require.Equal(t, 2, result.Summary.TotalRows)
	require.Equal(t, 1, result.Summary.ValidCount)
	require.Equal(t, 1, result.Summary.ErrorBreakdown[dataimport.CodeMissingField])
	require.Equal(t, "movimientos.csv", result.Batch.SourceFileName)
}

func TestStageCommandHumanClean(t *testing.T) {
	path := writeCSV(t, "sku,warehouse,qty,date\nSKU-1,Central,10,2024-03-01\n")
	stdout := new(bytes.Buffer)
	require.Zero(t, StageCommand(StageOptions{Path: path, Kind: "movements", CompanyID: "acme", Stdout: stdout, Stderr: new(bytes.Buffer)}))
	require.Contains(t, stdout.String(), "rows: 1 valid: 1 invalid: 0")
}

func TestStageCommandBadInput(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, 1, StageCommand(StageOptions{Path: "x.csv", Kind: "orders", Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "--kind")

	stderr.Reset()
	require.Equal(t, 1, StageCommand(StageOptions{Path: filepath.Join(t.TempDir(), "missing.csv"), Kind: "products", Stdout: new(bytes.Buffer), Stderr: stderr}))
}

func TestJobsCLITrigger(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJobsCLI(mr.Addr(), "acme")
	defer c.Close()

	info, err := c.Trigger(context.Background(), jobs.TaskLedgerSnapshot)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskLedgerSnapshot, info.Type)

	_, err = c.Trigger(context.Background(), "mail:send")
	require.ErrorIs(t, err, jobs.ErrUnsupportedTask)
}
