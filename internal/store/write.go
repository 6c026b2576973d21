package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// BeginBlock records a new block. Its weight use and extrinsic count are
// filled in by FinishBlock.
func (s *Store) BeginBlock(ctx context.Context, b ir.BlockRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocks (number, trace_id, weight_limit)
		VALUES (?, ?, ?)
	`,
		b.Number,
		b.TraceID,
		toSQLWeight(b.WeightLimit),
	)
	if err != nil {
		return fmt.Errorf("begin block %d: %w", b.Number, err)
	}
	return nil
}

// FinishBlock records the weight used and the extrinsic count of a block.
func (s *Store) FinishBlock(ctx context.Context, number uint64, weightUsed uint64, extrinsics int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE blocks SET weight_used = ?, extrinsics = ?
		WHERE number = ?
	`, toSQLWeight(weightUsed), extrinsics, number)
	if err != nil {
		return fmt.Errorf("finish block %d: %w", number, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish block %d: rows affected: %w", number, err)
	}
	if n == 0 {
		return fmt.Errorf("finish block %d: unknown block", number)
	}
	return nil
}

// CommitExtrinsic writes an applied extrinsic in one transaction: the
// extrinsic row, its change set, its events, and the resulting cells.
// If any write fails none persist.
func (s *Store) CommitExtrinsic(ctx context.Context, rec ir.ExtrinsicRecord) error {
	name, args, err := marshalCall(rec.Call)
	if err != nil {
		return fmt.Errorf("commit extrinsic %s: %w", rec.ID, err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO extrinsics
			(id, block_number, idx, seq, origin, call_name, args, weight, outcome, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID,
			rec.Block,
			rec.Index,
			rec.Seq,
			rec.Origin.String(),
			name,
			args,
			toSQLWeight(rec.Weight),
			rec.Outcome,
			rec.Error,
		)
		if err != nil {
			return fmt.Errorf("insert extrinsic: %w", err)
		}

		for _, ch := range rec.Changes {
			if err := writeChange(ctx, tx, rec.ID, ch); err != nil {
				return err
			}
		}

		for _, ev := range rec.Events {
			kind, payload, err := marshalEvent(ev.Event)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO events (seq, extrinsic_id, idx, kind, payload)
				VALUES (?, ?, ?, ?, ?)
			`, ev.Seq, rec.ID, ev.Index, kind, payload)
			if err != nil {
				return fmt.Errorf("insert event %d: %w", ev.Seq, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit extrinsic %s: %w", rec.ID, err)
	}
	return nil
}

// writeChange logs one change and applies it to the cells table.
func writeChange(ctx context.Context, tx *sql.Tx, extrinsicID string, ch ir.CellChange) error {
	if _, err := state.ParseCell(ch.Cell); err != nil {
		return err
	}

	var value sql.NullInt64
	if ch.Present {
		value = sql.NullInt64{Int64: int64(ch.Value), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cell_changes (extrinsic_id, cell, value)
		VALUES (?, ?, ?)
	`, extrinsicID, ch.Cell, value)
	if err != nil {
		return fmt.Errorf("insert change %s: %w", ch.Cell, err)
	}

	if ch.Present {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cells (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value
		`, ch.Cell, int64(ch.Value))
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM cells WHERE name = ?`, ch.Cell)
	}
	if err != nil {
		return fmt.Errorf("apply change %s: %w", ch.Cell, err)
	}
	return nil
}
