package journal

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// schemaLockID serializes schema upgrades across sessions sharing a database.
const schemaLockID = 0x46544a31 // "FTJ1"

// schemaStep is one numbered SQL file under schema/, named <version>_<name>.sql.
type schemaStep struct {
	version int
	file    string
}

// schemaSteps lists the steps in fsys ordered by version. Files that are not
// SQL are ignored; a missing or repeated version number is an error.
func schemaSteps(fsys fs.ReadDirFS) ([]schemaStep, error) {
	entries, err := fsys.ReadDir("schema")
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}

	var steps []schemaStep
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		v, err := strconv.Atoi(prefix)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("schema file %s has no version prefix", e.Name())
		}
		if other, ok := seen[v]; ok {
			return nil, fmt.Errorf("schema version %d used by %s and %s", v, other, e.Name())
		}
		seen[v] = e.Name()
		steps = append(steps, schemaStep{version: v, file: e.Name()})
	}
	slices.SortFunc(steps, func(a, b schemaStep) int { return a.version - b.version })
	return steps, nil
}

// ensureSchema brings the journal tables up to the newest embedded version.
// The whole upgrade runs in one transaction under an advisory lock, so a
// failed step leaves the previous version intact.
func (p *Pool) ensureSchema(ctx context.Context, log logrus.FieldLogger) error {
	steps, err := schemaSteps(schemaFS)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema upgrade: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("lock journal schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journal_schema (
			version INTEGER PRIMARY KEY,
			upgraded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create journal_schema: %w", err)
	}

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM journal_schema").Scan(&current); err != nil {
		return fmt.Errorf("read journal schema version: %w", err)
	}

	applied := 0
	for _, s := range steps {
		if s.version <= current {
			continue
		}
		body, err := schemaFS.ReadFile("schema/" + s.file)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", s.file, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply schema %s: %w", s.file, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO journal_schema (version) VALUES ($1)", s.version); err != nil {
			return fmt.Errorf("record schema version %d: %w", s.version, err)
		}
		current = s.version
		applied++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema upgrade: %w", err)
	}
	if applied > 0 {
		log.WithFields(logrus.Fields{"version": current, "steps": applied}).Info("journal schema upgraded")
	}
	return nil
}
