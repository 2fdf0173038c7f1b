package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

const upsertRecordSQL = `
	INSERT INTO synced_records (collection, record_id, payload, created_at, synced_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (collection, record_id)
	DO UPDATE SET payload = EXCLUDED.payload, synced_at = NOW()
`

// SyncRepository stores pushed journal records in synced_records.
type SyncRepository struct {
	conn *Connection
}

// NewSyncRepository creates a new SyncRepository.
func NewSyncRepository(conn *Connection) *SyncRepository {
	return &SyncRepository{conn: conn}
}

// syncedRow is one synced_records row.
type syncedRow struct {
	ID        string
	Payload   []byte
	CreatedAt *time.Time
}

// toRows serializes records. The pendingSync flag is local bookkeeping and is
// not part of the stored payload.
func toRows(records []store.Record) ([]syncedRow, error) {
	rows := make([]syncedRow, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			return nil, errors.New("record without id")
		}

		payload := make(map[string]any, len(rec))
		for k, v := range rec {
			if k != store.FieldPendingSync {
				payload[k] = v
			}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", id, err)
		}

		row := syncedRow{ID: id, Payload: data}
		if s, ok := rec["createdAt"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				row.CreatedAt = &t
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PushRecords upserts records of one collection in a single transaction.
func (r *SyncRepository) PushRecords(ctx context.Context, collection string, records []store.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows, err := toRows(records)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertRecordSQL, collection, row.ID, row.Payload, row.CreatedAt)
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to push %s records: %w", collection, err)
		}
		return nil
	})
}

// Count returns how many records of collection are stored remotely.
func (r *SyncRepository) Count(ctx context.Context, collection string) (int, error) {
	rows, err := r.conn.Query(ctx, `SELECT count(*) FROM synced_records WHERE collection = $1`, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", collection, err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", collection, err)
	}
	return n, nil
}
