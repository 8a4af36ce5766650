package migrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/logger"
)

// ErrCancelled is returned when the operator declines the confirmation
// prompt. It is a graceful abort, not a failure: nothing was written.
var ErrCancelled = errors.New("migration cancelled by operator")

// Copier moves table data from Source to Dest, one table at a time, one
// batch at a time. A per-table failure is recorded and the run moves on.
type Copier struct {
	Source    *Source
	Dest      *Dest
	Log       *logger.Logger
	BatchSize int
	DryRun    bool

	// Confirm gates destination mutation in non-dry-run mode. nil means
	// proceed without asking (--yes).
	Confirm func(prompt string) bool
}

// Run executes the full copy and returns the run statistics. The returned
// stats are valid even when err is non-nil.
func (c *Copier) Run(ctx context.Context, include, exclude []string) (*Stats, error) {
	stats := &Stats{}

	tables, err := c.Source.Tables(ctx, include, exclude)
	if err != nil {
		return stats, err
	}
	c.Log.Info("found tables to migrate", map[string]any{"count": len(tables)})
	if len(tables) == 0 {
		c.Log.Warn("no tables to migrate", nil)
		return stats, nil
	}

	if !c.DryRun && c.Confirm != nil {
		prompt := fmt.Sprintf("About to migrate %d tables from MySQL to PostgreSQL.\nThis will INSERT data into existing PostgreSQL tables.", len(tables))
		if !c.Confirm(prompt) {
			return stats, ErrCancelled
		}
	}

	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		c.Log.Info("migrating table", map[string]any{
			"table":    table,
			"position": fmt.Sprintf("%d/%d", i+1, len(tables)),
		})
		if err := c.copyTable(ctx, table, stats); err != nil {
			if errors.Is(err, context.Canceled) {
				return stats, err
			}
			stats.FailedTables = append(stats.FailedTables, table)
			c.Log.Error("table migration failed", map[string]any{
				"table": table,
				"error": err.Error(),
			})
		}
	}
	return stats, nil
}

func (c *Copier) copyTable(ctx context.Context, table string, stats *Stats) error {
	info, err := c.Source.Describe(ctx, table)
	if err != nil {
		return err
	}
	c.Log.Debug("table described", map[string]any{
		"table":   table,
		"columns": len(info.Columns),
		"rows":    info.RowCount,
	})

	if info.RowCount == 0 {
		stats.TablesSkipped++
		c.Log.Info("skipping empty table", map[string]any{"table": table})
		return nil
	}

	if c.DryRun {
		stats.TablesMigrated++
		stats.TotalRows += info.RowCount
		c.Log.Info("dry run: would migrate", map[string]any{
			"table": table,
			"rows":  info.RowCount,
		})
		return nil
	}

	exists, err := c.Dest.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		stats.TablesSkipped++
		c.Log.Warn("table missing in postgres, skipping", map[string]any{"table": table})
		return nil
	}

	if err := c.Dest.DisableTriggers(ctx, table); err != nil {
		return fmt.Errorf("disable triggers on %s: %w", table, err)
	}
	defer func() {
		if err := c.Dest.EnableTriggers(ctx, table); err != nil {
			c.Log.Warn("re-enabling triggers failed", map[string]any{
				"table": table,
				"error": err.Error(),
			})
		}
	}()

	var migrated int64
	for offset := 0; int64(offset) < info.RowCount; offset += c.BatchSize {
		batch, err := c.Source.FetchBatch(ctx, info, c.BatchSize, offset)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		skipped, err := c.Dest.InsertBatch(ctx, table, info.Columns, batch)
		stats.RowsSkipped += skipped
		if err != nil {
			return fmt.Errorf("insert batch into %s: %w", table, err)
		}
		migrated += int64(len(batch))
		c.Log.Debug("batch committed", map[string]any{
			"table":    table,
			"migrated": migrated,
			"total":    info.RowCount,
		})
	}

	c.Dest.ResyncSequences(ctx, table, info.PrimaryKeys)

	stats.TablesMigrated++
	stats.TotalRows += migrated
	c.Log.Info("table migrated", map[string]any{"table": table, "rows": migrated})
	return nil
}
