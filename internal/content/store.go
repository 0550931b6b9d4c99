package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const upsertBlockSQL = `
INSERT INTO content_blocks (key, page, block_type, value, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key) DO UPDATE
SET page = EXCLUDED.page,
    block_type = EXCLUDED.block_type,
    value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at
RETURNING id, key, page, block_type, value, created_at, updated_at`

type blockRow struct {
	ID        string    `db:"id"`
	Key       string    `db:"key"`
	Page      string    `db:"page"`
	BlockType string    `db:"block_type"`
	Value     []byte    `db:"value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLStore keeps blocks in the content_blocks table.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore creates a store on the staff connection.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	if db == nil {
		panic("content: sqlx db required")
	}
	return &SQLStore{db: db, now: time.Now}
}

// Upsert inserts the block or replaces the block with the same key.
func (s *SQLStore) Upsert(ctx context.Context, key, page string, blockType BlockType, value BlockValue) (*Block, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("content: encode value: %w", err)
	}
	var row blockRow
	if err := s.db.QueryRowxContext(ctx, upsertBlockSQL, key, page, string(blockType), raw, s.now().UTC()).StructScan(&row); err != nil {
		return nil, fmt.Errorf("content: upsert: %w", err)
	}
	block := &Block{
		ID:        row.ID,
		Key:       row.Key,
		Page:      row.Page,
		BlockType: BlockType(row.BlockType),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Value) > 0 {
		if err := json.Unmarshal(row.Value, &block.Value); err != nil {
			return nil, fmt.Errorf("content: decode value: %w", err)
		}
	}
	return block, nil
}
