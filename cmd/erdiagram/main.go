package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cosai-tools/risk-navigator/internal/infrastructure/config"
)

// erdiagram introspects the submission schema and renders a Mermaid
// erDiagram, so the docs stay in sync with the live database.

type column struct {
	Name       string
	DataType   string
	Nullable   bool
	PrimaryKey bool
	ForeignKey bool
}

type relationship struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		schema     = flag.String("schema", "public", "Schema to introspect")
		out        = flag.String("out", "", "Output file (default stdout)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.Database.Enabled() {
		slog.Error("no database configured, set DATABASE_URL or the PG* environment variables")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	tables, relationships, err := introspect(ctx, conn, *schema)
	if err != nil {
		slog.Error("introspection failed", "error", err)
		os.Exit(1)
	}

	diagram := renderMermaid(tables, relationships)

	if *out == "" {
		fmt.Print(diagram)
		return
	}
	if err := os.WriteFile(*out, []byte(diagram), 0o644); err != nil {
		slog.Error("failed to write diagram", "path", *out, "error", err)
		os.Exit(1)
	}
	slog.Info("diagram written", "path", *out, "tables", len(tables))
}

func introspect(ctx context.Context, conn *pgx.Conn, schema string) (map[string][]column, []relationship, error) {
	tables := make(map[string][]column)

	rows, err := conn.Query(ctx, `
		SELECT c.table_name, c.column_name, c.data_type, c.is_nullable = 'YES'
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`, schema)
	if err != nil {
		return nil, nil, fmt.Errorf("querying columns: %w", err)
	}
	for rows.Next() {
		var table string
		var col column
		if err := rows.Scan(&table, &col.Name, &col.DataType, &col.Nullable); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning column: %w", err)
		}
		tables[table] = append(tables[table], col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading columns: %w", err)
	}

	primaryKeys, err := constrainedColumns(ctx, conn, schema, "PRIMARY KEY")
	if err != nil {
		return nil, nil, err
	}
	foreignKeys, err := constrainedColumns(ctx, conn, schema, "FOREIGN KEY")
	if err != nil {
		return nil, nil, err
	}
	for table, cols := range tables {
		for i := range cols {
			cols[i].PrimaryKey = primaryKeys[table+"."+cols[i].Name]
			cols[i].ForeignKey = foreignKeys[table+"."+cols[i].Name]
		}
		tables[table] = cols
	}

	relationships, err := foreignKeyRelationships(ctx, conn, schema)
	if err != nil {
		return nil, nil, err
	}

	return tables, relationships, nil
}

func constrainedColumns(ctx context.Context, conn *pgx.Conn, schema, constraintType string) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `
		SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = $2
	`, schema, constraintType)
	if err != nil {
		return nil, fmt.Errorf("querying %s constraints: %w", constraintType, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var table, col string
		if err := rows.Scan(&table, &col); err != nil {
			return nil, fmt.Errorf("scanning constraint: %w", err)
		}
		out[table+"."+col] = true
	}
	return out, rows.Err()
}

func foreignKeyRelationships(ctx context.Context, conn *pgx.Conn, schema string) ([]relationship, error) {
	rows, err := conn.Query(ctx, `
		SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
	`, schema)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	var out []relationship
	for rows.Next() {
		var rel relationship
		if err := rows.Scan(&rel.FromTable, &rel.FromColumn, &rel.ToTable, &rel.ToColumn); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func renderMermaid(tables map[string][]column, relationships []relationship) string {
	var b strings.Builder
	b.WriteString("erDiagram\n")

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&b, "    %s {\n", name)
		for _, col := range tables[name] {
			marks := make([]string, 0, 2)
			if col.PrimaryKey {
				marks = append(marks, "PK")
			}
			if col.ForeignKey {
				marks = append(marks, "FK")
			}
			mark := ""
			if len(marks) > 0 {
				mark = " " + strings.Join(marks, ",")
			}
			fmt.Fprintf(&b, "        %s %s%s\n", mermaidType(col.DataType), col.Name, mark)
		}
		b.WriteString("    }\n")
	}

	for _, rel := range relationships {
		fmt.Fprintf(&b, "    %s }o--|| %s : %q\n", rel.FromTable, rel.ToTable, rel.FromColumn)
	}

	return b.String()
}

// mermaidType squeezes Postgres type names into identifiers Mermaid accepts.
func mermaidType(dataType string) string {
	replacer := strings.NewReplacer(" ", "_", "[]", "_array")
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "character varying":
		return "varchar"
	case "ARRAY":
		return "array"
	default:
		return replacer.Replace(dataType)
	}
}
