package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/diagram-service/internal/model"
)

var diagramCols = strings.Split(selectColumns, ", ")

func ptr[T any](v T) *T { return &v }

func newMockRepo(t *testing.T) (*DiagramRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo, err := NewDiagramRepo(db, "t_diagram")
	require.NoError(t, err)
	return repo, mock
}

// diagramRow renders a stored row with default column values.
func diagramRow(id, pkg int64, typ, name string, created time.Time) []driver.Value {
	return []driver.Value{
		id, pkg, int64(0), typ, name, "1.0",
		"", int64(0), "", "", int64(1), int64(1), int64(1),
		"P", int64(0), int64(0), int64(100), created, created, "",
		int64(1), int64(1), int64(1), "", int64(0),
		"{6B29FC40-CA47-1067-B31D-00DD010662DA}", int64(0), "", "",
	}
}

func rowsOf(values ...[]driver.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows(diagramCols)
	for _, v := range values {
		rows.AddRow(v...)
	}
	return rows
}

func selectByIDQuery() string {
	return regexp.QuoteMeta("SELECT " + selectColumns + " FROM t_diagram WHERE diagram_id = ?")
}

func TestNewDiagramRepo_RejectsBadTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewDiagramRepo(db, "t_diagram; DROP TABLE x")
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewDiagramRepo(nil, "t_diagram")
	assert.Error(t, err)
}

func TestCreate_AppliesDefaultsAndReturnsRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 8, 2, 19, 10, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t_diagram (package_id, parentid, diagram_type, name, version")).
		WithArgs(
			1, 0, "Class", "Order Flow", "1.0",
			"", 0, "", "", 1, 1, 1,
			"P", 0, 0, 100,
			"", 1, 1, 1, "", 0,
			sqlmock.AnyArg(), 0, "", "",
		).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(selectByIDQuery()).WithArgs(42).
		WillReturnRows(rowsOf(diagramRow(42, 1, "Class", "Order Flow", created)))
	mock.ExpectCommit()

	d, err := repo.Create(context.Background(), model.DiagramInput{Name: ptr("Order Flow"), DiagramType: ptr("Class")})
	require.NoError(t, err)

	assert.Equal(t, int64(42), d.DiagramID)
	assert.Equal(t, "Class", d.DiagramType)
	assert.Equal(t, "1.0", d.Version)
	assert.Equal(t, "P", d.Orientation)
	assert.Equal(t, 0, d.Locked)
	assert.Equal(t, created, d.CreatedDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_StatementFailureIsStoreError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t_diagram").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	d, err := repo.Create(context.Background(), model.DiagramInput{Name: ptr("x")})
	assert.Nil(t, d)
	require.Error(t, err)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "create", se.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_BeginFailureIsStoreError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := repo.Create(context.Background(), model.DiagramInput{Name: ptr("x")})
	assert.True(t, IsStoreError(err))
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectByIDQuery()).WithArgs(7).
		WillReturnRows(rowsOf(diagramRow(7, 3, "Logical", "Domain", created)))
	mock.ExpectQuery(selectByIDQuery()).WithArgs(8).
		WillReturnRows(sqlmock.NewRows(diagramCols))

	d, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Domain", d.Name)
	assert.Equal(t, int64(3), d.PackageID)

	missing, err := repo.GetByID(context.Background(), 8)
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_QueryFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(selectByIDQuery()).WillReturnError(errors.New("boom"))

	d, err := repo.GetByID(context.Background(), 1)
	assert.Nil(t, d)
	assert.True(t, IsStoreError(err))
}

func TestList_Filters(t *testing.T) {
	base := "SELECT " + selectColumns + " FROM t_diagram"
	order := " ORDER BY createddate DESC, diagram_id DESC"

	tests := []struct {
		name   string
		filter DiagramFilter
		query  string
		args   []driver.Value
	}{
		{"no filters", DiagramFilter{}, base + order, nil},
		{"package", DiagramFilter{PackageID: ptr(int64(1))}, base + " WHERE package_id = ?" + order, []driver.Value{1}},
		{"type", DiagramFilter{DiagramType: ptr("Class")}, base + " WHERE diagram_type = ?" + order, []driver.Value{"Class"}},
		{"both", DiagramFilter{PackageID: ptr(int64(2)), DiagramType: ptr("Use Case")}, base + " WHERE package_id = ? AND diagram_type = ?" + order, []driver.Value{2, "Use Case"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exp := mock.ExpectQuery("^" + regexp.QuoteMeta(tt.query) + "$")
			if tt.args != nil {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(sqlmock.NewRows(diagramCols))

			out, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, out)
			assert.Empty(t, out)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestList_ByPackageNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	t0 := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	// the store sorts; the repository must preserve that order
	mock.ExpectQuery(regexp.QuoteMeta("WHERE package_id = ? ORDER BY createddate DESC, diagram_id DESC")).
		WithArgs(1).
		WillReturnRows(rowsOf(
			diagramRow(2, 1, "Logical", "second", t0.Add(time.Minute)),
			diagramRow(1, 1, "Logical", "first", t0),
		))

	out, err := repo.List(context.Background(), DiagramFilter{PackageID: ptr(int64(1))})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "second", out[0].Name)
	assert.Equal(t, "first", out[1].Name)
}

func TestUpdate_PartialFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM t_diagram WHERE diagram_id = ?")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("^" + regexp.QuoteMeta("UPDATE t_diagram SET name = ?, locked = ?, modifieddate = CURRENT_TIMESTAMP WHERE diagram_id = ?") + "$").
		WithArgs("Renamed", 1, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	row := diagramRow(5, 1, "Logical", "Renamed", now)
	row[24] = int64(1)
	mock.ExpectQuery(selectByIDQuery()).WithArgs(5).WillReturnRows(rowsOf(row))
	mock.ExpectCommit()

	d, err := repo.Update(context.Background(), 5, model.DiagramInput{Name: ptr("Renamed"), Locked: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", d.Name)
	assert.Equal(t, 1, d.Locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_EmptyInputBumpsTimestampOnly(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM t_diagram")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("^" + regexp.QuoteMeta("UPDATE t_diagram SET modifieddate = CURRENT_TIMESTAMP WHERE diagram_id = ?") + "$").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectByIDQuery()).WithArgs(5).
		WillReturnRows(rowsOf(diagramRow(5, 1, "Logical", "Same", time.Now().UTC())))
	mock.ExpectCommit()

	d, err := repo.Update(context.Background(), 5, model.DiagramInput{})
	require.NoError(t, err)
	assert.Equal(t, "Same", d.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM t_diagram")).WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	d, err := repo.Update(context.Background(), 404, model.DiagramInput{Name: ptr("x")})
	assert.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_TwiceReportsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	existsQ := regexp.QuoteMeta("SELECT 1 FROM t_diagram WHERE diagram_id = ?")

	mock.ExpectBegin()
	mock.ExpectQuery(existsQ).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM t_diagram WHERE diagram_id = ?")).WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(existsQ).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	found, err := repo.Delete(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.Delete(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_StatementFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM t_diagram").WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM t_diagram").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	found, err := repo.Delete(context.Background(), 9)
	assert.False(t, found)
	assert.True(t, IsStoreError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatement_BindsValues(t *testing.T) {
	evil := "x'; DROP TABLE t_diagram; --"
	q, args := updateStatement("t_diagram", 3, &model.DiagramInput{Notes: &evil, CX: ptr(10), PackageID: ptr(int64(4))})

	assert.Equal(t, "UPDATE t_diagram SET package_id = ?, notes = ?, cx = ?, modifieddate = CURRENT_TIMESTAMP WHERE diagram_id = ?", q)
	assert.Equal(t, []any{int64(4), evil, 10, int64(3)}, args)
	assert.NotContains(t, q, "DROP")
}

func TestUpdateStatement_EmptyInputOnlyBumpsTimestamp(t *testing.T) {
	q, args := updateStatement("t_diagram", 8, &model.DiagramInput{})

	assert.Equal(t, "UPDATE t_diagram SET modifieddate = CURRENT_TIMESTAMP WHERE diagram_id = ?", q)
	assert.Equal(t, []any{int64(8)}, args)
}

func TestInsertStatement_CoversWritableColumns(t *testing.T) {
	d := model.DiagramInput{Name: ptr("n")}.ApplyDefaults()
	q, args := insertStatement("t_diagram", &d)

	assert.Len(t, args, len(writableColumns))
	assert.Equal(t, len(writableColumns), strings.Count(q, "?"))
	assert.NotContains(t, q, "diagram_id")
	assert.NotContains(t, q, "createddate")
	assert.NotContains(t, q, "modifieddate")
}
