package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// Blocks returns every block, oldest first.
func (s *Store) Blocks(ctx context.Context) ([]ir.BlockRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, trace_id, weight_limit, weight_used, extrinsics
		FROM blocks ORDER BY number ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	blocks := []ir.BlockRecord{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// Extrinsics returns the extrinsics of a block in index order, each with
// its change set and events. This is everything Replay needs.
func (s *Store) Extrinsics(ctx context.Context, block uint64) ([]ir.ExtrinsicRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, block_number, idx, seq, origin, call_name, args, weight, outcome, error
		FROM extrinsics
		WHERE block_number = ?
		ORDER BY idx ASC
	`, block)
	if err != nil {
		return nil, fmt.Errorf("query extrinsics: %w", err)
	}

	recs := []ir.ExtrinsicRecord{}
	for rows.Next() {
		rec, err := scanExtrinsic(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate extrinsics: %w", err)
	}
	// Release the only connection before the per-extrinsic queries.
	rows.Close()

	for i := range recs {
		if recs[i].Changes, err = s.readChanges(ctx, recs[i].ID); err != nil {
			return nil, err
		}
		if recs[i].Events, err = s.readEvents(ctx, recs[i].ID); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func scanExtrinsic(row rowScanner) (ir.ExtrinsicRecord, error) {
	var rec ir.ExtrinsicRecord
	var origin, name, args string
	var weight int64
	err := row.Scan(&rec.ID, &rec.Block, &rec.Index, &rec.Seq, &origin, &name, &args, &weight, &rec.Outcome, &rec.Error)
	if err != nil {
		return rec, fmt.Errorf("scan extrinsic: %w", err)
	}
	rec.Weight = fromSQLWeight(weight)
	if rec.Origin, err = ir.ParseOrigin(origin); err != nil {
		return rec, fmt.Errorf("extrinsic %s: %w", rec.ID, err)
	}
	if rec.Call, err = unmarshalCall(name, args); err != nil {
		return rec, fmt.Errorf("extrinsic %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Store) readChanges(ctx context.Context, extrinsicID string) ([]ir.CellChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell, value FROM cell_changes
		WHERE extrinsic_id = ?
		ORDER BY cell ASC
	`, extrinsicID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	changes := []ir.CellChange{}
	for rows.Next() {
		var ch ir.CellChange
		var value sql.NullInt64
		if err := rows.Scan(&ch.Cell, &value); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if value.Valid {
			ch.Value = uint32(value.Int64)
			ch.Present = true
		}
		changes = append(changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}

func (s *Store) readEvents(ctx context.Context, extrinsicID string) ([]ir.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, idx, kind, payload FROM events
		WHERE extrinsic_id = ?
		ORDER BY idx ASC
	`, extrinsicID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	evs := []ir.EventRecord{}
	for rows.Next() {
		var ev ir.EventRecord
		var kind, payload string
		if err := rows.Scan(&ev.Seq, &ev.Index, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Event, err = unmarshalEvent(kind, payload); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return evs, nil
}
