// Package abstractions defines the storage contracts shared by the
// aggregation engine, the snapshot cache and their store implementations.
package abstractions

import (
	"context"
	"strings"

	"liberandum-backend/pkg/utils"
)

// Core attribute names maintained by repositories rather than callers
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldIsDeleted = "is_deleted"
	FieldApproved  = "approved"
	FieldSymbol    = "symbol"
)

// Record is a loosely typed item: a required core (id, timestamps) plus any
// number of open attributes. Values are whatever the store decoded: strings,
// float64 numbers, bools, []interface{} and nested maps.
type Record map[string]interface{}

// ID returns the store identifier
func (r Record) ID() string {
	return r.String(FieldID)
}

// CreatedAt returns the ISO-8601 creation timestamp
func (r Record) CreatedAt() string {
	return r.String(FieldCreatedAt)
}

// UpdatedAt returns the ISO-8601 update timestamp
func (r Record) UpdatedAt() string {
	return r.String(FieldUpdatedAt)
}

// Symbol returns the upper-cased business key
func (r Record) Symbol() string {
	return strings.ToUpper(r.String(FieldSymbol))
}

// IsDeleted reports the soft-delete flag
func (r Record) IsDeleted() bool {
	return utils.SafeBool(r[FieldIsDeleted], false)
}

// IsApproved reports the approval gate. A missing flag counts as not approved.
func (r Record) IsApproved() bool {
	return utils.SafeBool(r[FieldApproved], false)
}

// String returns a string attribute or "" when absent or not a string
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stats summarizes the contents of a table
type Stats struct {
	TotalItems      int            `json:"total_items"`
	FieldCounts     map[string]int `json:"field_counts"`
	OldestCreatedAt string         `json:"oldest_created_at,omitempty"`
	NewestCreatedAt string         `json:"newest_created_at,omitempty"`
}

// Repository is the generic record store over one table. Lookups that find
// nothing return a nil record or an empty slice, never an error.
type Repository interface {
	Create(ctx context.Context, data Record, autoID bool) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	UpdateByID(ctx context.Context, id string, updates Record) (Record, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	ListAll(ctx context.Context, limit int) ([]Record, error)
	Scan(ctx context.Context, limit int) ([]Record, error)
	FindByField(ctx context.Context, field string, value interface{}, indexName string) ([]Record, error)
	FindByMultipleFields(ctx context.Context, filters map[string]interface{}) ([]Record, error)
	BulkCreate(ctx context.Context, items []Record) error
	CountTotal(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (Stats, error)
	TableName() string
}

// RepositoryFactory opens a repository for a table
type RepositoryFactory interface {
	ForTable(tableName string) Repository
}
