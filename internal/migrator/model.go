package migrator

// TableInfo is the source table descriptor, read once per table at the
// start of its copy and immutable thereafter.
type TableInfo struct {
	Name        string
	Columns     []string
	PrimaryKeys []string
	RowCount    int64
}

// Stats accumulates run-level counters. Touched only by the single control
// goroutine; read once at the end to print the summary.
type Stats struct {
	TablesMigrated int
	TablesSkipped  int
	TotalRows      int64
	RowsSkipped    int64
	FailedTables   []string
}
