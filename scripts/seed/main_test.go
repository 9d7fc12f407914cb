package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/internal/masterdata"
)

func TestSeedStagesCleanly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, seed(dir, 30))

	catalog, err := masterdata.LoadFile(filepath.Join(dir, masterDataFile))
	require.NoError(t, err)
	id, ok := catalog.ResolveWarehouseID("almacen central")
	require.True(t, ok)
	require.Equal(t, "WH-CEN", id)

	f, err := os.Open(filepath.Join(dir, movementsFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := dataimport.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, rows, 30)

	result := dataimport.NewMapper(catalog).Map("acme", dataimport.KindMovements, rows, movementsFile)
	require.Equal(t, 30, result.Summary.ValidCount, result.Batch.Errors)
	require.Zero(t, result.Summary.InvalidCount)
}
