package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteItemStore implements ItemStore backed by SQLite.
type SQLiteItemStore struct {
	db *sql.DB
}

// NewSQLiteItemStore returns a new SQLiteItemStore.
func NewSQLiteItemStore(db *sql.DB) *SQLiteItemStore {
	return &SQLiteItemStore{db: db}
}

const itemColumns = `id, name, type, subtype, manufacturer, notes,
	last_maintenance_date, maintenance_interval_months, next_maintenance_date,
	created_at, updated_at`

// ListItems returns all items ordered by creation time.
func (s *SQLiteItemStore) ListItems(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at, id`)
	if err != nil {
		return nil, &Error{Op: "list items", Err: err}
	}
	return scanItems(rows)
}

// ListItemsByType returns all items of the given type ordered by creation time.
func (s *SQLiteItemStore) ListItemsByType(ctx context.Context, t ItemType) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE type = ? ORDER BY created_at, id`, t)
	if err != nil {
		return nil, &Error{Op: "list items by type", Err: err}
	}
	return scanItems(rows)
}

// GetItem returns the item with the given id, or nil if it does not exist.
func (s *SQLiteItemStore) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: fmt.Sprintf("get item %q", id), Err: err}
	}
	return item, nil
}

// CreateItem inserts a new item.
func (s *SQLiteItemStore) CreateItem(ctx context.Context, item *Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Type, item.Subtype, item.Manufacturer, item.Notes,
		item.LastMaintenanceDate, item.IntervalMonths, item.NextMaintenanceDate,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return &Error{Op: "insert item", Err: err}
	}
	return nil
}

// UpdateItem replaces the stored item with the same id.
func (s *SQLiteItemStore) UpdateItem(ctx context.Context, item *Item) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET
			name = ?, subtype = ?, manufacturer = ?, notes = ?,
			last_maintenance_date = ?, maintenance_interval_months = ?,
			next_maintenance_date = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Subtype, item.Manufacturer, item.Notes,
		item.LastMaintenanceDate, item.IntervalMonths,
		item.NextMaintenanceDate, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return &Error{Op: fmt.Sprintf("update item %q", item.ID), Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &Error{Op: "check update result", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("item %q not found", item.ID)
	}
	return nil
}

// DeleteItem removes the item with the given id.
func (s *SQLiteItemStore) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return &Error{Op: fmt.Sprintf("delete item %q", id), Err: err}
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanItem.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.Name, &it.Type, &it.Subtype, &it.Manufacturer, &it.Notes,
		&it.LastMaintenanceDate, &it.IntervalMonths, &it.NextMaintenanceDate,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanItems(rows *sql.Rows) (items []*Item, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning item row: %w", scanErr)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item rows: %w", err)
	}
	return items, nil
}
