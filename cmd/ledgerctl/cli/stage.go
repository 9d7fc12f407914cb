package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/internal/masterdata"
)

// StageOptions defines available flags for the stage command.
type StageOptions struct {
	Path           string
	Kind           string
	CompanyID      string
	MasterDataFile string
	JSONOutput     bool
	Stdout         io.Writer
	Stderr         io.Writer
}

// StageCommand maps a CSV file offline and prints the validation outcome.
// It exits 10 when at least one row would be rejected.
func StageCommand(opts StageOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	kind := dataimport.Kind(opts.Kind)
	if !kind.Valid() {
		_, _ = fmt.Fprintf(opts.Stderr, "stage: --kind must be products or movements, got %q\n", opts.Kind)
		return 1
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "stage: %v\n", err)
		return 1
	}
	defer f.Close()
	rows, err := dataimport.ReadCSV(f)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "stage: read csv: %v\n", err)
		return 1
	}

	var products dataimport.ProductChecker
	if opts.MasterDataFile != "" {
		catalog, err := masterdata.LoadFile(opts.MasterDataFile)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "stage: %v\n", err)
			return 1
		}
		if catalog.HasProducts() {
			products = catalog
		}
	}
	result := dataimport.NewMapper(products).Map(opts.CompanyID, kind, rows, filepath.Base(opts.Path))

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "stage: encode json: %v\n", err)
			return 1
		}
	} else {
		renderStageHuman(opts.Stdout, result)
	}
	if result.Summary.InvalidCount > 0 {
		return 10
	}
	return 0
}

func renderStageHuman(w io.Writer, result dataimport.Result) {
	s := result.Summary
	_, _ = fmt.Fprintf(w, "batch %s (%s)\n", result.Batch.BatchID, result.Batch.Kind)
	_, _ = fmt.Fprintf(w, "rows: %d valid: %d invalid: %d\n", s.TotalRows, s.ValidCount, s.InvalidCount)
	codes := make([]string, 0, len(s.ErrorBreakdown))
	for code := range s.ErrorBreakdown {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	for _, code := range codes {
		_, _ = fmt.Fprintf(w, "  %-18s %d\n", code, s.ErrorBreakdown[dataimport.ErrorCode(code)])
	}
	for _, e := range result.Batch.Errors {
		_, _ = fmt.Fprintf(w, "  row %d %s %s: %s\n", e.RowIndex, e.Code, e.Field, e.Message)
	}
}
