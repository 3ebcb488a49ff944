// Package storage provides SQLite-backed persistence for the collection and
// the engine's auxiliary key/value data.
package storage

import (
	"context"
	"time"
)

// ItemType discriminates the two kinds of collection items.
type ItemType string

const (
	ItemTypeConsole   ItemType = "console"
	ItemTypeAccessory ItemType = "accessory"
)

// Item is one entry in the collection: a console or an accessory, together
// with its maintenance bookkeeping. Maintenance dates are stored in the
// regional DD/MM/YYYY form; empty strings mean "not set".
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         ItemType `json:"type"`
	Subtype      string   `json:"subtype,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Notes        string   `json:"notes,omitempty"`

	LastMaintenanceDate string `json:"last_maintenance_date,omitempty"`
	IntervalMonths      int    `json:"maintenance_interval_months,omitempty"`
	NextMaintenanceDate string `json:"next_maintenance_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemStore is the persistence contract for collection items.
type ItemStore interface {
	// ListItems returns all items ordered by creation time.
	ListItems(ctx context.Context) ([]*Item, error)
	// ListItemsByType returns all items of the given type ordered by creation time.
	ListItemsByType(ctx context.Context, t ItemType) ([]*Item, error)
	// GetItem returns the item with the given id, or nil if it does not exist.
	GetItem(ctx context.Context, id string) (*Item, error)
	// CreateItem inserts a new item.
	CreateItem(ctx context.Context, item *Item) error
	// UpdateItem replaces the stored item with the same id. Updating an
	// unknown id is an error.
	UpdateItem(ctx context.Context, item *Item) error
	// DeleteItem removes the item with the given id. Deleting an unknown id
	// is a no-op.
	DeleteItem(ctx context.Context, id string) error
}
