// Package repository contains data access logic separated from HTTP handlers.
// This file defines the diagram repository: parameterized CRUD against a
// single table, one dedicated connection per call.
package repository

import (
	"context"      // context carries deadlines and cancellation to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"
	"fmt"
	"regexp"

	"github.com/iliyamo/diagram-service/internal/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DiagramFilter is an optional conjunction of equality filters for List.
type DiagramFilter struct {
	PackageID   *int64
	DiagramType *string
}

// DiagramRepo encapsulates all queries against the diagram table.  It holds
// no per-request state and is safe for concurrent use.
type DiagramRepo struct {
	db    *sql.DB // db hands out connections; each call checks out its own
	table string  // validated identifier, interpolated into statements
}

// NewDiagramRepo constructs a DiagramRepo for table.  The table name is the
// only value ever interpolated into SQL, so it must be a bare identifier.
func NewDiagramRepo(db *sql.DB, table string) (*DiagramRepo, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &DiagramRepo{db: db, table: table}, nil
}

// Table returns the table name this repository operates on.
func (r *DiagramRepo) Table() string { return r.table }

// withConn checks out one connection for the duration of fn and always
// releases it.  Failures other than a missing row are wrapped in StoreError.
func (r *DiagramRepo) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	defer conn.Close()
	if err := fn(conn); err != nil {
		if errors.Is(err, errNoRow) {
			return err
		}
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

// withTx runs fn inside a transaction on a dedicated connection.  The
// transaction commits only when fn succeeds.
func (r *DiagramRepo) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	return r.withConn(ctx, op, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// queryer is the subset of *sql.Conn and *sql.Tx used by the read helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *DiagramRepo) selectByID(ctx context.Context, q queryer, id int64) (*model.Diagram, error) {
	query := "SELECT " + selectColumns + " FROM " + r.table + " WHERE diagram_id = ?"
	d, err := scanDiagram(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoRow
	}
	return d, err
}

func (r *DiagramRepo) exists(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+r.table+" WHERE diagram_id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoRow
	}
	return err
}

// Create inserts a new diagram built from in with defaults applied.  The row
// is read back on the same connection so the caller receives the store
// assigned id and timestamps.
func (r *DiagramRepo) Create(ctx context.Context, in model.DiagramInput) (*model.Diagram, error) {
	d := in.ApplyDefaults()
	var out *model.Diagram
	err := r.withTx(ctx, "create", func(tx *sql.Tx) error {
		q, args := insertStatement(r.table, &d)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		out, err = r.selectByID(ctx, tx, id)
		if errors.Is(err, errNoRow) {
			return fmt.Errorf("inserted diagram %d not readable", id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the diagram with the given id, or nil without error when
// no row matches.
func (r *DiagramRepo) GetByID(ctx context.Context, id int64) (*model.Diagram, error) {
	var out *model.Diagram
	err := r.withConn(ctx, "read", func(conn *sql.Conn) error {
		var err error
		out, err = r.selectByID(ctx, conn, id)
		return err
	})
	if errors.Is(err, errNoRow) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns diagrams matching every filter that is set, newest first.
// The result is never nil.
func (r *DiagramRepo) List(ctx context.Context, f DiagramFilter) ([]*model.Diagram, error) {
	query := "SELECT " + selectColumns + " FROM " + r.table
	var (
		where []string
		args  []any
	)
	if f.PackageID != nil {
		where = append(where, "package_id = ?")
		args = append(args, *f.PackageID)
	}
	if f.DiagramType != nil {
		where = append(where, "diagram_type = ?")
		args = append(args, *f.DiagramType)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY createddate DESC, diagram_id DESC"

	out := make([]*model.Diagram, 0)
	err := r.withConn(ctx, "list", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDiagram(rows)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the supplied columns of diagram id and bumps modifieddate.
// An input with no supplied columns only bumps the timestamp.  It returns
// nil without error when the diagram does not exist.
func (r *DiagramRepo) Update(ctx context.Context, id int64, in model.DiagramInput) (*model.Diagram, error) {
	var out *model.Diagram
	err := r.withTx(ctx, "update", func(tx *sql.Tx) error {
		if err := r.exists(ctx, tx, id); err != nil {
			return err
		}
		q, args := updateStatement(r.table, id, &in)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
		var err error
		out, err = r.selectByID(ctx, tx, id)
		return err
	})
	if errors.Is(err, errNoRow) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes diagram id.  found is false when no such diagram existed;
// calling Delete twice for the same id therefore reports false the second time.
func (r *DiagramRepo) Delete(ctx context.Context, id int64) (found bool, err error) {
	err = r.withTx(ctx, "delete", func(tx *sql.Tx) error {
		if err := r.exists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE diagram_id = ?", id)
		return err
	})
	if errors.Is(err, errNoRow) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
