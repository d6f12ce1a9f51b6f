package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // CGO-free sqlite driver
)

// SQLiteCatalog is a Catalog backed by a SQLite database. Schema
// metadata is written by the ingestion subsystem; this catalog only
// reads it. The three entity kinds live in one table keyed by
// (kind, id).
type SQLiteCatalog struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite-backed catalog at path.
// Use ":memory:" for an ephemeral catalog.
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// SQLite writes are single-threaded anyway; one connection keeps
	// in-memory databases coherent across goroutines.
	db.SetMaxOpenConns(1)

	c := &SQLiteCatalog{db: db}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		table_id INTEGER NOT NULL DEFAULT 0,
		table_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		aliases TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (kind, id)
	);
	CREATE INDEX IF NOT EXISTS idx_entities_kind_name ON entities(kind, name);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}
	return nil
}

// Put inserts or replaces an entity.
func (c *SQLiteCatalog) Put(ctx context.Context, e *Entity) error {
	aliases, err := json.Marshal(e.Aliases)
	if err != nil {
		return fmt.Errorf("marshal aliases: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO entities (kind, id, name, table_id, table_name, description, definition, category, aliases)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			name = excluded.name,
			table_id = excluded.table_id,
			table_name = excluded.table_name,
			description = excluded.description,
			definition = excluded.definition,
			category = excluded.category,
			aliases = excluded.aliases
	`, string(e.Kind), e.ID, e.Name, e.TableID, e.TableName, e.Description, e.Definition, e.Category, string(aliases))
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", e.Key(), err)
	}
	return nil
}

// PutAll inserts or replaces a batch of entities in one transaction.
func (c *SQLiteCatalog) PutAll(ctx context.Context, entities []*Entity) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (kind, id, name, table_id, table_name, description, definition, category, aliases)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			name = excluded.name,
			table_id = excluded.table_id,
			table_name = excluded.table_name,
			description = excluded.description,
			definition = excluded.definition,
			category = excluded.category,
			aliases = excluded.aliases
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		aliases, err := json.Marshal(e.Aliases)
		if err != nil {
			return fmt.Errorf("marshal aliases for %s: %w", e.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx, string(e.Kind), e.ID, e.Name, e.TableID, e.TableName,
			e.Description, e.Definition, e.Category, string(aliases)); err != nil {
			return fmt.Errorf("upsert entity %s: %w", e.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns the entity with the given identity.
func (c *SQLiteCatalog) GetByID(ctx context.Context, kind Kind, id int64) (*Entity, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT kind, id, name, table_id, table_name, description, definition, category, aliases
		FROM entities
		WHERE kind = ? AND id = ?
	`, string(kind), id)

	e, err := scanEntity(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound{Kind: kind, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %s:%d: %w", kind, id, err)
	}
	return e, nil
}

// ListByKind returns all entities of one kind, ordered by ID.
func (c *SQLiteCatalog) ListByKind(ctx context.Context, kind Kind) ([]*Entity, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT kind, id, name, table_id, table_name, description, definition, category, aliases
		FROM entities
		WHERE kind = ?
		ORDER BY id
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*Entity
	for rows.Next() {
		e, err := scanEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListNames returns the (id, name, aliases) projection for one kind,
// ordered by ID.
func (c *SQLiteCatalog) ListNames(ctx context.Context, kind Kind) ([]NameEntry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, aliases
		FROM entities
		WHERE kind = ?
		ORDER BY id
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	var out []NameEntry
	for rows.Next() {
		var entry NameEntry
		var aliases string
		if err := rows.Scan(&entry.ID, &entry.Name, &aliases); err != nil {
			return nil, fmt.Errorf("scan name entry: %w", err)
		}
		if err := json.Unmarshal([]byte(aliases), &entry.Aliases); err != nil {
			return nil, fmt.Errorf("unmarshal aliases: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

func scanEntity(scan func(dest ...any) error) (*Entity, error) {
	var e Entity
	var kind, aliases string
	if err := scan(&kind, &e.ID, &e.Name, &e.TableID, &e.TableName,
		&e.Description, &e.Definition, &e.Category, &aliases); err != nil {
		return nil, err
	}
	e.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(aliases), &e.Aliases); err != nil {
		return nil, fmt.Errorf("unmarshal aliases: %w", err)
	}
	return &e, nil
}
