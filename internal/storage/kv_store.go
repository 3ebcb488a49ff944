package storage

import "context"

// KVStore is a small generic key/value contract used for data that lives as
// a single serialized value, such as the notification history log.
type KVStore interface {
	// Get returns the value stored under key. The boolean is false when the
	// key has never been set.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
