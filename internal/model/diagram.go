package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Diagram is one row of the diagram table.  Column names follow the CAD
// repository layout the table was imported from, so JSON keys mirror them.
//
// DiagramID, CreatedDate and ModifiedDate are assigned by the store.
type Diagram struct {
	DiagramID           int64     `json:"diagram_id"`
	PackageID           int64     `json:"package_id"`
	ParentID            int64     `json:"parentid"`
	DiagramType         string    `json:"diagram_type"`
	Name                string    `json:"name"`
	Version             string    `json:"version"`
	Author              string    `json:"author"`
	ShowDetails         int       `json:"showdetails"`
	Notes               string    `json:"notes"`
	Stereotype          string    `json:"stereotype"`
	AttPub              int       `json:"attpub"`
	AttPri              int       `json:"attpri"`
	AttPro              int       `json:"attpro"`
	Orientation         string    `json:"orientation"`
	CX                  int       `json:"cx"`
	CY                  int       `json:"cy"`
	Scale               int       `json:"scale"`
	CreatedDate         time.Time `json:"createddate"`
	ModifiedDate        time.Time `json:"modifieddate"`
	HTMLPath            string    `json:"htmlpath"`
	ShowForeign         int       `json:"showforeign"`
	ShowBorder          int       `json:"showborder"`
	ShowPackageContents int       `json:"showpackagecontents"`
	PData               string    `json:"pdata"`
	Locked              int       `json:"locked"`
	EAGUID              string    `json:"ea_guid"`
	TPos                int       `json:"tpos"`
	Swimlanes           string    `json:"swimlanes"`
	StyleEx             string    `json:"styleex"`
}

// DiagramInput is the request payload for create and update.  A nil field
// was not supplied by the caller.
type DiagramInput struct {
	PackageID           *int64  `json:"package_id"`
	ParentID            *int64  `json:"parentid"`
	DiagramType         *string `json:"diagram_type"`
	Name                *string `json:"name"`
	Version             *string `json:"version"`
	Author              *string `json:"author"`
	ShowDetails         *int    `json:"showdetails"`
	Notes               *string `json:"notes"`
	Stereotype          *string `json:"stereotype"`
	AttPub              *int    `json:"attpub"`
	AttPri              *int    `json:"attpri"`
	AttPro              *int    `json:"attpro"`
	Orientation         *string `json:"orientation"`
	CX                  *int    `json:"cx"`
	CY                  *int    `json:"cy"`
	Scale               *int    `json:"scale"`
	HTMLPath            *string `json:"htmlpath"`
	ShowForeign         *int    `json:"showforeign"`
	ShowBorder          *int    `json:"showborder"`
	ShowPackageContents *int    `json:"showpackagecontents"`
	PData               *string `json:"pdata"`
	Locked              *int    `json:"locked"`
	EAGUID              *string `json:"ea_guid"`
	TPos                *int    `json:"tpos"`
	Swimlanes           *string `json:"swimlanes"`
	StyleEx             *string `json:"styleex"`
}

// Defaults for columns the caller may omit on create.
const (
	DefaultPackageID   int64 = 1
	DefaultDiagramType       = "Logical"
	DefaultVersion           = "1.0"
	DefaultOrientation       = "P"
	DefaultScale             = 100
)

// NewGUID returns an identifier in the braced upper-case form used by ea_guid.
func NewGUID() string {
	return "{" + strings.ToUpper(uuid.NewString()) + "}"
}

// ApplyDefaults builds a full Diagram from in, filling every omitted column
// from the defaults table.  Store-assigned fields are left zero.
func (in DiagramInput) ApplyDefaults() Diagram {
	d := Diagram{
		PackageID:           DefaultPackageID,
		DiagramType:         DefaultDiagramType,
		Version:             DefaultVersion,
		AttPub:              1,
		AttPri:              1,
		AttPro:              1,
		Orientation:         DefaultOrientation,
		Scale:               DefaultScale,
		ShowForeign:         1,
		ShowBorder:          1,
		ShowPackageContents: 1,
	}
	setInt64(&d.PackageID, in.PackageID)
	setInt64(&d.ParentID, in.ParentID)
	setStr(&d.DiagramType, in.DiagramType)
	setStr(&d.Name, in.Name)
	setStr(&d.Version, in.Version)
	setStr(&d.Author, in.Author)
	setInt(&d.ShowDetails, in.ShowDetails)
	setStr(&d.Notes, in.Notes)
	setStr(&d.Stereotype, in.Stereotype)
	setInt(&d.AttPub, in.AttPub)
	setInt(&d.AttPri, in.AttPri)
	setInt(&d.AttPro, in.AttPro)
	setStr(&d.Orientation, in.Orientation)
	setInt(&d.CX, in.CX)
	setInt(&d.CY, in.CY)
	setInt(&d.Scale, in.Scale)
	setStr(&d.HTMLPath, in.HTMLPath)
	setInt(&d.ShowForeign, in.ShowForeign)
	setInt(&d.ShowBorder, in.ShowBorder)
	setInt(&d.ShowPackageContents, in.ShowPackageContents)
	setStr(&d.PData, in.PData)
	setInt(&d.Locked, in.Locked)
	setStr(&d.EAGUID, in.EAGUID)
	setInt(&d.TPos, in.TPos)
	setStr(&d.Swimlanes, in.Swimlanes)
	setStr(&d.StyleEx, in.StyleEx)
	if d.EAGUID == "" {
		d.EAGUID = NewGUID()
	}
	return d
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}
