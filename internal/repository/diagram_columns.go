package repository

import (
	"strings"

	"github.com/iliyamo/diagram-service/internal/model"
)

// selectColumns is the fixed projection every read uses; scanDiagram
// consumes it in the same order.
var selectColumns = strings.Join([]string{
	"diagram_id", "package_id", "parentid", "diagram_type", "name", "version",
	"author", "showdetails", "notes", "stereotype", "attpub", "attpri", "attpro",
	"orientation", "cx", "cy", "scale", "createddate", "modifieddate", "htmlpath",
	"showforeign", "showborder", "showpackagecontents", "pdata", "locked",
	"ea_guid", "tpos", "swimlanes", "styleex",
}, ", ")

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagram(s rowScanner) (*model.Diagram, error) {
	d := new(model.Diagram)
	err := s.Scan(
		&d.DiagramID, &d.PackageID, &d.ParentID, &d.DiagramType, &d.Name, &d.Version,
		&d.Author, &d.ShowDetails, &d.Notes, &d.Stereotype, &d.AttPub, &d.AttPri, &d.AttPro,
		&d.Orientation, &d.CX, &d.CY, &d.Scale, &d.CreatedDate, &d.ModifiedDate, &d.HTMLPath,
		&d.ShowForeign, &d.ShowBorder, &d.ShowPackageContents, &d.PData, &d.Locked,
		&d.EAGUID, &d.TPos, &d.Swimlanes, &d.StyleEx,
	)
	if err != nil {
		return nil, err
	}
	d.CreatedDate = d.CreatedDate.UTC()
	d.ModifiedDate = d.ModifiedDate.UTC()
	return d, nil
}

// column pairs a writable column with the accessor that extracts its value
// from a DiagramInput.  ok is false when the caller did not supply it.
type column struct {
	name  string
	value func(in *model.DiagramInput) (v any, ok bool)
	full  func(d *model.Diagram) any
}

// writableColumns is the allow-list for INSERT and partial UPDATE.  Store
// assigned columns (diagram_id, createddate, modifieddate) are absent on
// purpose.  Values are always bound through placeholders.
var writableColumns = []column{
	{"package_id", func(in *model.DiagramInput) (any, bool) { return deref(in.PackageID) }, func(d *model.Diagram) any { return d.PackageID }},
	{"parentid", func(in *model.DiagramInput) (any, bool) { return deref(in.ParentID) }, func(d *model.Diagram) any { return d.ParentID }},
	{"diagram_type", func(in *model.DiagramInput) (any, bool) { return deref(in.DiagramType) }, func(d *model.Diagram) any { return d.DiagramType }},
	{"name", func(in *model.DiagramInput) (any, bool) { return deref(in.Name) }, func(d *model.Diagram) any { return d.Name }},
	{"version", func(in *model.DiagramInput) (any, bool) { return deref(in.Version) }, func(d *model.Diagram) any { return d.Version }},
	{"author", func(in *model.DiagramInput) (any, bool) { return deref(in.Author) }, func(d *model.Diagram) any { return d.Author }},
	{"showdetails", func(in *model.DiagramInput) (any, bool) { return deref(in.ShowDetails) }, func(d *model.Diagram) any { return d.ShowDetails }},
	{"notes", func(in *model.DiagramInput) (any, bool) { return deref(in.Notes) }, func(d *model.Diagram) any { return d.Notes }},
	{"stereotype", func(in *model.DiagramInput) (any, bool) { return deref(in.Stereotype) }, func(d *model.Diagram) any { return d.Stereotype }},
	{"attpub", func(in *model.DiagramInput) (any, bool) { return deref(in.AttPub) }, func(d *model.Diagram) any { return d.AttPub }},
	{"attpri", func(in *model.DiagramInput) (any, bool) { return deref(in.AttPri) }, func(d *model.Diagram) any { return d.AttPri }},
	{"attpro", func(in *model.DiagramInput) (any, bool) { return deref(in.AttPro) }, func(d *model.Diagram) any { return d.AttPro }},
	{"orientation", func(in *model.DiagramInput) (any, bool) { return deref(in.Orientation) }, func(d *model.Diagram) any { return d.Orientation }},
	{"cx", func(in *model.DiagramInput) (any, bool) { return deref(in.CX) }, func(d *model.Diagram) any { return d.CX }},
	{"cy", func(in *model.DiagramInput) (any, bool) { return deref(in.CY) }, func(d *model.Diagram) any { return d.CY }},
	{"scale", func(in *model.DiagramInput) (any, bool) { return deref(in.Scale) }, func(d *model.Diagram) any { return d.Scale }},
	{"htmlpath", func(in *model.DiagramInput) (any, bool) { return deref(in.HTMLPath) }, func(d *model.Diagram) any { return d.HTMLPath }},
	{"showforeign", func(in *model.DiagramInput) (any, bool) { return deref(in.ShowForeign) }, func(d *model.Diagram) any { return d.ShowForeign }},
	{"showborder", func(in *model.DiagramInput) (any, bool) { return deref(in.ShowBorder) }, func(d *model.Diagram) any { return d.ShowBorder }},
	{"showpackagecontents", func(in *model.DiagramInput) (any, bool) { return deref(in.ShowPackageContents) }, func(d *model.Diagram) any { return d.ShowPackageContents }},
	{"pdata", func(in *model.DiagramInput) (any, bool) { return deref(in.PData) }, func(d *model.Diagram) any { return d.PData }},
	{"locked", func(in *model.DiagramInput) (any, bool) { return deref(in.Locked) }, func(d *model.Diagram) any { return d.Locked }},
	{"ea_guid", func(in *model.DiagramInput) (any, bool) { return deref(in.EAGUID) }, func(d *model.Diagram) any { return d.EAGUID }},
	{"tpos", func(in *model.DiagramInput) (any, bool) { return deref(in.TPos) }, func(d *model.Diagram) any { return d.TPos }},
	{"swimlanes", func(in *model.DiagramInput) (any, bool) { return deref(in.Swimlanes) }, func(d *model.Diagram) any { return d.Swimlanes }},
	{"styleex", func(in *model.DiagramInput) (any, bool) { return deref(in.StyleEx) }, func(d *model.Diagram) any { return d.StyleEx }},
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

// insertStatement returns the INSERT covering every writable column and the
// matching argument list taken from d.
func insertStatement(table string, d *model.Diagram) (string, []any) {
	names := make([]string, len(writableColumns))
	args := make([]any, len(writableColumns))
	for i, c := range writableColumns {
		names[i] = c.name
		args[i] = c.full(d)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	q := "INSERT INTO " + table + " (" + strings.Join(names, ", ") + ") VALUES (" + placeholders + ")"
	return q, args
}

// updateStatement builds the partial UPDATE for in.  Only supplied columns
// are rewritten; modifieddate is always bumped, so an empty input still
// produces a valid statement.
func updateStatement(table string, id int64, in *model.DiagramInput) (q string, args []any) {
	sets := make([]string, 0, len(writableColumns)+1)
	for _, c := range writableColumns {
		v, ok := c.value(in)
		if !ok {
			continue
		}
		sets = append(sets, c.name+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "modifieddate = CURRENT_TIMESTAMP")
	args = append(args, id)
	q = "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE diagram_id = ?"
	return q, args
}
