package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Version describes the grid limits of a spreadsheet file format
type Version struct {
	Name       string
	MaxRows    int
	MaxColumns int
}

var (
	// Excel97 is the legacy binary format (.xls)
	Excel97 = Version{Name: "excel97", MaxRows: 0x10000, MaxColumns: 0x100}

	// Excel2007 is the Office Open XML format (.xlsx)
	Excel2007 = Version{Name: "excel2007", MaxRows: excelize.TotalRows, MaxColumns: excelize.MaxColumns}
)

// LastRowIndex returns the largest valid zero-based row index
func (v Version) LastRowIndex() int {
	return v.MaxRows - 1
}

// LastColumnIndex returns the largest valid zero-based column index
func (v Version) LastColumnIndex() int {
	return v.MaxColumns - 1
}

// orDefault maps the zero Version to Excel2007
func (v Version) orDefault() Version {
	if v.MaxRows == 0 {
		return Excel2007
	}
	return v
}

func (v Version) String() string {
	return v.Name
}

// ParseVersion maps a format name or file extension to a Version
func ParseVersion(name string) (Version, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "xls", "excel97", "biff8":
		return Excel97, nil
	case "", "xlsx", "xlsm", "excel2007", "ooxml":
		return Excel2007, nil
	}
	return Version{}, NewApplicationError(InvalidArgument, fmt.Sprintf("unknown spreadsheet format: %s", name))
}
