package database

import (
    "context"
    "database/sql"
    "embed"
    "fmt"
    "log"
    "sort"
    "strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one numbered schema file, e.g. 002_seat_reservations.sql.
type Migration struct {
    Version int
    Name    string
    SQL     string
}

// Migrator applies embedded migrations and records them in
// schema_migrations.
type Migrator struct {
    db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator {
    return &Migrator{db: db}
}

// LoadMigrations reads the embedded files ordered by version.
func LoadMigrations() ([]Migration, error) {
    entries, err := migrationFiles.ReadDir("migrations")
    if err != nil {
        return nil, fmt.Errorf("read migrations directory: %w", err)
    }
    var migrations []Migration
    for _, entry := range entries {
        if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
            continue
        }
        parts := strings.SplitN(entry.Name(), "_", 2)
        if len(parts) != 2 {
            continue
        }
        var version int
        if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
            continue
        }
        content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
        if err != nil {
            return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
        }
        migrations = append(migrations, Migration{
            Version: version,
            Name:    strings.TrimSuffix(parts[1], ".sql"),
            SQL:     string(content),
        })
    }
    sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
    return migrations, nil
}

// Statements splits a migration into single statements.  The driver runs
// one statement per Exec unless multiStatements is enabled, which we keep
// off.  Comment lines are dropped.
func (m Migration) Statements() []string {
    var b strings.Builder
    for _, line := range strings.Split(m.SQL, "\n") {
        if strings.HasPrefix(strings.TrimSpace(line), "--") {
            continue
        }
        b.WriteString(line)
        b.WriteByte('\n')
    }
    var out []string
    for _, stmt := range strings.Split(b.String(), ";") {
        if s := strings.TrimSpace(stmt); s != "" {
            out = append(out, s)
        }
    }
    return out
}

// Run applies every migration not yet recorded.  MySQL commits DDL
// implicitly, so each statement is applied on its own and the version is
// recorded after the last one; every statement uses IF NOT EXISTS so a
// half-applied file can be re-run.
func (m *Migrator) Run(ctx context.Context) error {
    if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version    INT PRIMARY KEY,
        name       VARCHAR(255) NOT NULL,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`); err != nil {
        return fmt.Errorf("create migrations table: %w", err)
    }

    applied := map[int]bool{}
    rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
    if err != nil {
        return fmt.Errorf("read applied migrations: %w", err)
    }
    for rows.Next() {
        var v int
        if err := rows.Scan(&v); err != nil {
            rows.Close()
            return err
        }
        applied[v] = true
    }
    if err := rows.Close(); err != nil {
        return err
    }

    migrations, err := LoadMigrations()
    if err != nil {
        return err
    }
    for _, mig := range migrations {
        if applied[mig.Version] {
            continue
        }
        log.Printf("migrate: applying %03d_%s", mig.Version, mig.Name)
        for _, stmt := range mig.Statements() {
            if _, err := m.db.ExecContext(ctx, stmt); err != nil {
                return fmt.Errorf("migration %d: %w", mig.Version, err)
            }
        }
        if _, err := m.db.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, mig.Version, mig.Name); err != nil {
            return fmt.Errorf("record migration %d: %w", mig.Version, err)
        }
    }
    return nil
}
