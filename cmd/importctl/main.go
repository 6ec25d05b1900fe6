// importctl imports a fair spreadsheet from the command line, for operators
// who want to load or validate a file without going through the dashboard.
//
// Usage:
//
//	importctl -file registrations.csv -year 2024
//	importctl -file registrations.csv -year 2024 -validate-only
//
// With -validate-only the pipeline runs against an in-memory store: nothing
// is persisted and the report shows what a real run would create.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/stemloop/fairtrack/internal/config"
	"github.com/stemloop/fairtrack/internal/imports"
	"github.com/stemloop/fairtrack/internal/logging"
	"github.com/stemloop/fairtrack/internal/store"
)

func main() {
	filePath := flag.String("file", "", "path to the CSV file to import")
	year := flag.Int("year", 0, "target fair year, e.g. 2024")
	validateOnly := flag.Bool("validate-only", false, "validate and reconcile in memory without persisting")
	flag.Parse()

	if *filePath == "" || *year == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// .env is optional for the CLI; a dry run needs no database at all.
	_ = godotenv.Load()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read file: %v", err)
	}

	records, err := imports.ParseCSV(imports.SanitizeUTF8(data))
	if err != nil {
		log.Fatalf("parse csv: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("file has no rows")
	}

	cols, missing := imports.Resolve(records[0])
	if len(missing) > 0 {
		color.Red("missing required columns: %s", strings.Join(missing, ", "))
		os.Exit(1)
	}

	outcome := imports.ProcessRows(cols, records[1:])
	imports.CountRejected(len(outcome.Rejected))

	if len(outcome.Rejected) > 0 {
		color.Yellow("\n%d row(s) rejected by validation", len(outcome.Rejected))
		printRejected(outcome.Rejected)
	}

	ctx := context.Background()
	repo, teardown, err := openRepository(ctx, *validateOnly)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer teardown()

	opts, err := engineOptions(*validateOnly)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	summary := imports.NewEngine(repo, opts).Run(ctx, *year, outcome.Accepted)

	if len(summary.Failures) > 0 {
		color.Yellow("\n%d row(s) failed during reconciliation", len(summary.Failures))
		printFailures(summary.Failures)
	}

	if *validateOnly {
		mem := repo.(*store.Memory)
		color.Cyan("\nDry run for %d: nothing was persisted", *year)
		fmt.Printf("would create: %d school(s), %d teacher(s), %d project(s), %d student(s)\n",
			len(mem.Schools), len(mem.Teachers), len(mem.Projects), len(mem.Students))
	}

	color.Green("\nProcessed %d of %d row(s) for %d (run %s)",
		summary.RowsProcessed, len(records)-1, *year, summary.RunID)

	if len(outcome.Rejected) > 0 || len(summary.Failures) > 0 {
		os.Exit(1)
	}
}

// openRepository returns the in-memory store for dry runs, or a PostgreSQL
// store connected via DATABASE_URL.
func openRepository(ctx context.Context, validateOnly bool) (imports.Repository, func(), error) {
	if validateOnly {
		return store.NewMemory(), func() {}, nil
	}

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		url = os.Getenv("DB_URL")
	}
	if url == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	if err := store.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store.NewPostgres(pool), pool.Close, nil
}

// engineOptions loads the legacy-compatibility switches. A dry run skips
// config loading entirely (no DATABASE_URL needed) and uses the defaults.
func engineOptions(validateOnly bool) (imports.Options, error) {
	if validateOnly {
		return imports.Options{OneStudentPerProject: true}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return imports.Options{}, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return imports.Options{
		SchoolKeyIncludesTown: cfg.Import.SchoolKeyIncludesTown,
		OneStudentPerProject:  cfg.Import.OneStudentPerProject,
		CategoryPlaceholder:   cfg.Import.CategoryPlaceholder,
	}, nil
}

func printRejected(rejected []imports.RejectedRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Line", "Reasons"})

	for _, row := range rejected {
		table.Append([]string{
			strconv.Itoa(row.Line),
			strings.Join(row.Reasons, "; "),
		})
	}

	table.Render()
}

func printFailures(failures []imports.RowFailure) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Line", "Step", "Reason"})

	for _, f := range failures {
		table.Append([]string{strconv.Itoa(f.Line), f.Step, f.Reason})
	}

	table.Render()
}
