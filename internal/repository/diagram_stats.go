package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/diagram-service/internal/model"
)

// ColumnInfo describes one column of the diagram table as reported by
// information_schema.
type ColumnInfo struct {
	Name     string  `json:"column_name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"is_nullable"`
	Default  *string `json:"column_default"`
}

// TableSize is the storage footprint of the diagram table.
type TableSize struct {
	TotalBytes    int64 `json:"total_bytes"`
	EstimatedRows int64 `json:"estimated_rows"`
}

// Ping verifies that a connection can be established.
func (r *DiagramRepo) Ping(ctx context.Context) error {
	return r.withConn(ctx, "ping", func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Count returns the exact number of rows in the table.
func (r *DiagramRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.withConn(ctx, "count", func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table).Scan(&n)
	})
	return n, err
}

// Sample returns up to limit of the most recently created diagrams.
func (r *DiagramRepo) Sample(ctx context.Context, limit int) ([]*model.Diagram, error) {
	if limit < 1 {
		limit = 1
	}
	query := "SELECT " + selectColumns + " FROM " + r.table + " ORDER BY createddate DESC, diagram_id DESC LIMIT ?"
	out := make([]*model.Diagram, 0, limit)
	err := r.withConn(ctx, "sample", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, limit)
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

// Columns lists the table's columns in ordinal order.
func (r *DiagramRepo) Columns(ctx context.Context) ([]ColumnInfo, error) {
	const q = `SELECT column_name, data_type, is_nullable, column_default
	           FROM information_schema.columns
	           WHERE table_schema = DATABASE() AND table_name = ?
	           ORDER BY ordinal_position`
	var out []ColumnInfo
	err := r.withConn(ctx, "columns", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q, r.table)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				c        ColumnInfo
				nullable string
				def      sql.NullString
			)
			if err := rows.Scan(&c.Name, &c.DataType, &nullable, &def); err != nil {
				return err
			}
			c.Nullable = nullable == "YES"
			if def.Valid {
				v := def.String
				c.Default = &v
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Size reports data plus index bytes and the engine's row estimate.
func (r *DiagramRepo) Size(ctx context.Context) (TableSize, error) {
	const q = `SELECT COALESCE(data_length + index_length, 0), COALESCE(table_rows, 0)
	           FROM information_schema.tables
	           WHERE table_schema = DATABASE() AND table_name = ?`
	var s TableSize
	err := r.withConn(ctx, "size", func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, q, r.table).Scan(&s.TotalBytes, &s.EstimatedRows)
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	})
	return s, err
}
