package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRunUsage(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, 2, run(context.Background(), nil, new(bytes.Buffer), stderr))
	require.Contains(t, stderr.String(), "usage: ledgerctl")
}

func TestRunStage(t *testing.T) {
	t.Setenv("LEDGER_COMPANY_ID", "acme")
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("codigo,nombre\nSKU-1,Tornillo\n"), 0o600))

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := run(context.Background(), []string{"stage", "-kind", "products", "-file", path}, stdout, stderr)
	require.Zero(t, code, stderr.String())
	require.Contains(t, stdout.String(), "valid: 1")
}

func TestRunTriggerAndQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("LEDGER_COMPANY_ID", "acme")
	t.Setenv("REDIS_ADDR", mr.Addr())

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	require.Zero(t, run(context.Background(), []string{"trigger", "ledger:integrity"}, stdout, stderr), stderr.String())
	require.Contains(t, stdout.String(), "enqueued ledger:integrity")

	require.Equal(t, 1, run(context.Background(), []string{"trigger", "nope"}, stdout, stderr))
	require.Equal(t, 2, run(context.Background(), []string{"trigger"}, stdout, stderr))
}
