package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"networth/internal/backend/memory"
	"networth/internal/cli"
	"networth/internal/config"
	"networth/internal/core"
	"networth/internal/metrics"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(logger, cfg, os.Args[2:])
	case "import":
		err = runImport(logger, cfg, os.Args[2:])
	case "verify":
		err = runVerify(logger, cfg, os.Args[2:])
	case "show":
		err = runShow(logger, cfg, os.Args[2:])
	case "bridge":
		err = runBridge(logger, cfg, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Net worth snapshot CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  snapshot <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate  Regenerate snapshots for -month or -from/-to")
	fmt.Println("  import    Load accounts.json and transactions.json from -dir into the ledger")
	fmt.Println("  verify    Check that stored snapshots chain over -from/-to")
	fmt.Println("  show      Print stored snapshots for -month or -from/-to as JSON")
	fmt.Println("  bridge    Print the cash-flow bridge for -month or -start/-end")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'snapshot <command> -h' for more information on a command.")
}

// monthFlags registers -month, -from and -to on fs.
type monthFlags struct {
	month, from, to *string
}

func addMonthFlags(fs *flag.FlagSet) monthFlags {
	return monthFlags{
		month: fs.String("month", "", "single month, YYYY-MM"),
		from:  fs.String("from", "", "first month of an inclusive range, YYYY-MM"),
		to:    fs.String("to", "", "last month of an inclusive range, YYYY-MM"),
	}
}

// months resolves the flags to an explicit month list. Exactly one of
// -month or -from/-to must be given.
func (f monthFlags) months() ([]core.Month, error) {
	switch {
	case *f.month != "" && (*f.from != "" || *f.to != ""):
		return nil, errors.New("-month and -from/-to are exclusive")
	case *f.month != "":
		m, err := core.ParseMonth(*f.month)
		if err != nil {
			return nil, err
		}
		return []core.Month{m}, nil
	case *f.from != "" && *f.to != "":
		from, err := core.ParseMonth(*f.from)
		if err != nil {
			return nil, err
		}
		to, err := core.ParseMonth(*f.to)
		if err != nil {
			return nil, err
		}
		return core.MonthRange(from, to)
	default:
		return nil, errors.New("either -month or both -from and -to are required")
	}
}

func runGenerate(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	mf := addMonthFlags(fs)
	verify := fs.Bool("verify", false, "verify the snapshot chain after generating")
	export := fs.Bool("export", true, "export committed snapshots to Google Sheets when configured")
	fs.Parse(args)

	months, err := mf.months()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg)
	defer res.Close()

	exporter := cli.InitExporter(ctx, logger, cfg)
	if !*export {
		exporter = nil
	}
	svc := cli.NewSnapshotService(cfg, res, exporter, metrics.Nop{})

	run, err := svc.Generate(ctx, months)
	if run != nil {
		fmt.Printf("run %s: %d requested, %d committed\n", run.RunID, len(run.Requested), len(run.Committed))
	}
	if err != nil {
		return err
	}

	if *verify {
		if err := svc.VerifyChain(ctx, months[0], months[len(months)-1]); err != nil {
			return err
		}
		fmt.Println("snapshot chain verified")
	}
	return nil
}

func runImport(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dir := fs.String("dir", cfg.LedgerDataDir, "directory holding accounts.json and transactions.json")
	fs.Parse(args)

	accounts, txs, err := memory.LoadLedger(*dir)
	if err != nil {
		return fmt.Errorf("load ledger from %s: %w", *dir, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg)
	defer res.Close()
	if res.Importer == nil {
		return fmt.Errorf("ledger backend %q is read-only", cfg.LedgerBackend)
	}

	if err := res.Importer.ImportLedger(ctx, accounts, txs); err != nil {
		return err
	}
	fmt.Printf("imported %d accounts and %d transactions\n", len(accounts), len(txs))
	return nil
}

func runVerify(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	mf := addMonthFlags(fs)
	fs.Parse(args)

	months, err := mf.months()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg)
	defer res.Close()
	svc := cli.NewSnapshotService(cfg, res, nil, metrics.Nop{})

	if err := svc.VerifyChain(ctx, months[0], months[len(months)-1]); err != nil {
		return err
	}
	fmt.Printf("snapshot chain %s..%s verified\n", months[0], months[len(months)-1])
	return nil
}

func runShow(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	mf := addMonthFlags(fs)
	fs.Parse(args)

	months, err := mf.months()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg)
	defer res.Close()

	snaps, err := res.Snapshots.ListSnapshots(ctx, months[0], months[len(months)-1])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snaps)
}

func runBridge(logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("bridge", flag.ExitOnError)
	month := fs.String("month", "", "bridge over one calendar month, YYYY-MM")
	start := fs.String("start", "", "period start, YYYY-MM-DD")
	end := fs.String("end", "", "inclusive period end, YYYY-MM-DD (default: now)")
	asJSON := fs.Bool("json", false, "print the full result with drill-down as JSON")
	fs.Parse(args)

	var periodStart, periodEnd time.Time
	switch {
	case *month != "":
		m, err := core.ParseMonth(*month)
		if err != nil {
			return err
		}
		periodStart, periodEnd = m.Start(), m.End()
	case *start != "":
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		periodStart = t
		if *end != "" {
			t, err := time.Parse("2006-01-02", *end)
			if err != nil {
				return fmt.Errorf("invalid -end: %w", err)
			}
			periodEnd = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	default:
		return errors.New("either -month or -start is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg)
	defer res.Close()
	// one computation per process; no cache
	oneShot := *cfg
	oneShot.BridgeCacheTTL = 0
	svc, _ := cli.NewBridgeService(&oneShot, res, metrics.Nop{})

	result, err := svc.Compute(ctx, periodStart, periodEnd)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Println(result.String())
	return nil
}
