package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/admin"
	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/config"
	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/db"
	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/logger"
	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/migrator"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConnect = 3
	exitFail    = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		usage()
		return exitOK
	}
	cmd := os.Args[1]
	switch cmd {
	case "copy", "reset", "check":
	default:
		usage()
		return exitUsage
	}

	global := flag.NewFlagSet(cmd, flag.ContinueOnError)
	mysqlURL := global.String("mysql-url", "", "MySQL connection URL (or DATABASE_MYSQL_URL)")
	postgresURL := global.String("postgres-url", "", "PostgreSQL connection URL (or DATABASE_POSTGRES_URL / DATABASE_URL)")
	batchSize := global.Int("batch-size", 0, "Rows per batch (default 1000, or COPY_BATCH_SIZE)")
	tables := global.String("tables", "", "Comma-separated tables to migrate (default: all)")
	skipTables := global.String("skip-tables", "", "Comma-separated tables to skip")
	dryRun := global.Bool("dry-run", false, "Preview migration without touching the destination")
	jsonOut := global.Bool("json", false, "JSON logs")
	conf := global.String("config", "", "Optional YAML config path")
	yes := global.Bool("yes", false, "Skip the confirmation prompt")
	verbose := global.Bool("verbose", false, "Verbose per-batch logs")
	if err := global.Parse(os.Args[2:]); err != nil {
		return exitUsage
	}

	cfg, err := config.LoadYAML(*conf)
	if err != nil && *conf != "" {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitUsage
	}
	cfg = config.MergeEnv(cfg)
	if *mysqlURL != "" {
		cfg.MySQLDSN = *mysqlURL
	}
	if *postgresURL != "" {
		cfg.PostgresDSN = *postgresURL
	}
	if *batchSize != 0 {
		cfg.BatchSize = *batchSize
	}
	if v := config.SplitTables(*tables); v != nil {
		cfg.Tables = v
	}
	if v := config.SplitTables(*skipTables); v != nil {
		cfg.SkipTables = v
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *jsonOut {
		cfg.JSON = true
	}
	if *yes {
		cfg.AssumeYes = true
	}

	log := logger.New(cfg.JSON, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd {
	case "copy":
		return runCopy(ctx, cfg, log)
	case "reset":
		return runReset(ctx, cfg, log)
	case "check":
		return runCheck(ctx, cfg, log)
	}
	return exitOK
}

func runCopy(ctx context.Context, cfg *config.Config, log *logger.Logger) int {
	if err := cfg.ValidateCopy(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	source, err := db.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Error("mysql open failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	defer source.Close()
	if err := source.PingContext(ctx); err != nil {
		log.Error("mysql ping failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	log.Info("connected to mysql", nil)

	dest, err := db.OpenPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres open failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	defer dest.Close()
	if err := dest.PingContext(ctx); err != nil {
		log.Error("postgres ping failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	log.Info("connected to postgres", nil)

	copier := &migrator.Copier{
		Source:    &migrator.Source{DB: source},
		Dest:      &migrator.Dest{DB: dest, Log: log},
		Log:       log,
		BatchSize: cfg.BatchSize,
		DryRun:    cfg.DryRun,
	}
	if !cfg.AssumeYes {
		copier.Confirm = confirmStdin
	}

	start := time.Now()
	stats, err := copier.Run(ctx, cfg.Tables, cfg.SkipTables)
	if err != nil {
		if errors.Is(err, migrator.ErrCancelled) {
			log.Info("migration cancelled, no changes made", nil)
			return exitOK
		}
		log.Error("migration failed", map[string]any{"error": err.Error()})
		return exitFail
	}
	printSummary(log, stats, time.Since(start), cfg.DryRun)
	return exitOK
}

func runReset(ctx context.Context, cfg *config.Config, log *logger.Logger) int {
	if err := cfg.ValidatePostgres(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	dest, err := db.OpenPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres open failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	defer dest.Close()
	if err := dest.PingContext(ctx); err != nil {
		log.Error("postgres ping failed", map[string]any{"error": err.Error()})
		return exitConnect
	}

	confirm := confirmStdin
	if cfg.AssumeYes {
		confirm = nil
	}
	if err := admin.ResetSchema(ctx, dest, log, confirm); err != nil {
		if errors.Is(err, migrator.ErrCancelled) {
			log.Info("reset cancelled, no changes made", nil)
			return exitOK
		}
		log.Error("reset failed", map[string]any{"error": err.Error()})
		return exitFail
	}
	return exitOK
}

func runCheck(ctx context.Context, cfg *config.Config, log *logger.Logger) int {
	if err := cfg.ValidatePostgres(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	dest, err := db.OpenPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres open failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	defer dest.Close()
	if err := dest.PingContext(ctx); err != nil {
		log.Error("postgres connection failed", map[string]any{"error": err.Error()})
		return exitConnect
	}
	if _, err := admin.Check(ctx, dest, log); err != nil {
		log.Error("check failed", map[string]any{"error": err.Error()})
		return exitFail
	}
	log.Info("all connection checks passed", nil)
	return exitOK
}

func printSummary(log *logger.Logger, stats *migrator.Stats, elapsed time.Duration, dryRun bool) {
	fields := map[string]any{
		"tables_migrated": stats.TablesMigrated,
		"tables_skipped":  stats.TablesSkipped,
		"rows_migrated":   stats.TotalRows,
		"elapsed":         elapsed.Round(10 * time.Millisecond).String(),
		"dry_run":         dryRun,
	}
	if stats.RowsSkipped > 0 {
		fields["rows_skipped"] = stats.RowsSkipped
	}
	log.Info("migration summary", fields)
	if len(stats.FailedTables) > 0 {
		log.Error("failed tables", map[string]any{
			"count":  len(stats.FailedTables),
			"tables": strings.Join(stats.FailedTables, ", "),
		})
	}
	if dryRun {
		log.Info("this was a dry run, no data was migrated", nil)
	}
}

func confirmStdin(prompt string) bool {
	fmt.Println(prompt)
	fmt.Print("Type 'yes' to continue: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func usage() {
	fmt.Println(`mysql2pg - copy table data from MySQL into an already-migrated PostgreSQL database

USAGE:
  mysql2pg <command> [--flags]

COMMANDS:
  copy    Copy table data from MySQL to PostgreSQL
  reset   Drop and recreate the destination public schema
  check   Verify PostgreSQL connectivity and permissions

GLOBAL FLAGS:
  --mysql-url <url>      MySQL connection URL (or DATABASE_MYSQL_URL)
  --postgres-url <url>   PostgreSQL connection URL (or DATABASE_POSTGRES_URL / DATABASE_URL)
  --batch-size <n>       Rows per batch (default 1000)
  --tables <a,b>         Only migrate the named tables
  --skip-tables <a,b>    Skip the named tables
  --dry-run              Preview migration without making changes
  --yes                  Skip the confirmation prompt
  --json                 JSON logs
  --config <path>        Optional YAML config path
  --verbose              Verbose per-batch logs

EXAMPLES:
  mysql2pg check --postgres-url "$DATABASE_URL"
  mysql2pg copy --dry-run
  mysql2pg copy --batch-size 500 --tables auth_user,adminportal_company
  mysql2pg reset --postgres-url "$DATABASE_URL" --yes`)
}
