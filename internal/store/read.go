package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// LoadCells returns the committed cells. Absent cells are not in the map.
func (s *Store) LoadCells(ctx context.Context) (map[state.Cell]uint32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM cells ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	cells := make(map[state.Cell]uint32)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		cell, err := state.ParseCell(name)
		if err != nil {
			return nil, err
		}
		cells[cell] = uint32(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}
	return cells, nil
}

// Head returns the last block number and the highest recorded seq.
func (s *Store) Head(ctx context.Context) (uint64, int64, error) {
	var block uint64
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(MAX(number), 0) FROM blocks),
			MAX(
				(SELECT COALESCE(MAX(seq), 0) FROM extrinsics),
				(SELECT COALESCE(MAX(seq), 0) FROM events)
			)
	`).Scan(&block, &seq)
	if err != nil {
		return 0, 0, fmt.Errorf("query head: %w", err)
	}
	return block, seq, nil
}

// Block returns one block. ok is false if it does not exist.
func (s *Store) Block(ctx context.Context, number uint64) (ir.BlockRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT number, trace_id, weight_limit, weight_used, extrinsics
		FROM blocks WHERE number = ?
	`, number)
	b, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return ir.BlockRecord{}, false, nil
	}
	if err != nil {
		return ir.BlockRecord{}, false, err
	}
	return b, true, nil
}

// BlockEvent is a stored event with the extrinsic that deposited it.
type BlockEvent struct {
	Block       uint64
	ExtrinsicID string
	Call        string
	ir.EventRecord
}

// Events returns the events of one block, or of all blocks when block is
// 0, ordered by seq.
func (s *Store) Events(ctx context.Context, block uint64) ([]BlockEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x.block_number, e.extrinsic_id, x.call_name, e.seq, e.idx, e.kind, e.payload
		FROM events e
		JOIN extrinsics x ON e.extrinsic_id = x.id
		WHERE ? = 0 OR x.block_number = ?
		ORDER BY e.seq ASC
	`, block, block)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []BlockEvent{}
	for rows.Next() {
		var be BlockEvent
		var kind, payload string
		if err := rows.Scan(&be.Block, &be.ExtrinsicID, &be.Call, &be.Seq, &be.Index, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		be.Event, err = unmarshalEvent(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", be.Seq, err)
		}
		out = append(out, be)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (ir.BlockRecord, error) {
	var b ir.BlockRecord
	var limit, used int64
	if err := row.Scan(&b.Number, &b.TraceID, &limit, &used, &b.Extrinsics); err != nil {
		if err == sql.ErrNoRows {
			return b, err
		}
		return b, fmt.Errorf("scan block: %w", err)
	}
	b.WeightLimit = fromSQLWeight(limit)
	b.WeightUsed = fromSQLWeight(used)
	return b, nil
}
