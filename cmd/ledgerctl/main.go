package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/stockledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/stockledger/internal/app"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  stage    -kind products|movements -file PATH [-json]   validate a CSV offline
  trigger  ledger:snapshot|ledger:integrity              enqueue a ledger job
  queue                                                  show default queue stats
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "ledgerctl: %v\n", err)
		return 1
	}

	switch args[0] {
	case "stage":
		fs := flag.NewFlagSet("stage", flag.ContinueOnError)
		fs.SetOutput(stderr)
		kind := fs.String("kind", "movements", "batch kind")
		file := fs.String("file", "", "CSV file to stage")
		asJSON := fs.Bool("json", false, "print the staged result as JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return cli.StageCommand(cli.StageOptions{
			Path:           *file,
			Kind:           *kind,
			CompanyID:      cfg.CompanyID,
			MasterDataFile: cfg.MasterDataFile,
			JSONOutput:     *asJSON,
			Stdout:         stdout,
			Stderr:         stderr,
		})
	case "trigger", "queue":
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.CompanyID)
		defer jobsCLI.Close()
		if args[0] == "queue" {
			stats, err := jobsCLI.InspectQueue(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
				return 1
			}
			_ = json.NewEncoder(stdout).Encode(stats)
			return 0
		}
		if len(args) < 2 {
			_, _ = fmt.Fprint(stderr, usage)
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
}
