package spreadsheet

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// AppErrorCode represents gRPC-style error codes for application-level errors.
// note that we are skipping error codes that don't make sense for our use-case,
// like unauthenticated, or permission denied.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error. Errors raised by APIs that do not return enough error
	// information may be converted to this error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates client specified an invalid argument, such
	// as a shift descriptor with a zero amount.
	InvalidArgument AppErrorCode = 3

	// NotFound means some requested entity (e.g., worksheet or named range)
	// was not found.
	NotFound AppErrorCode = 5

	// AlreadyExists means an attempt to create an entity failed because one
	// already exists.
	AlreadyExists AppErrorCode = 6

	// FailedPrecondition indicates operation was rejected because the
	// workbook is not in a state required for the operation's execution.
	FailedPrecondition AppErrorCode = 9

	// OutOfRange means operation was attempted past the valid range, like
	// moving rows beyond the last row of the format.
	OutOfRange AppErrorCode = 11

	// Unimplemented indicates operation is not implemented or not
	// supported.
	Unimplemented AppErrorCode = 12

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal AppErrorCode = 13
)

// AppError represents errors at the application level (not
// spreadsheet formula errors)
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// EditReport summarizes what a structural edit did to the workbook's
// formulas
type EditReport struct {
	// Changed counts formulas and defined names whose tokens changed
	Changed int

	// Broken counts references that became #REF!
	Broken int
}

// Add accumulates another report into this one
func (r *EditReport) Add(other EditReport) {
	r.Changed += other.Changed
	r.Broken += other.Broken
}

// FormulaCell is one formula of the workbook in display form
type FormulaCell struct {
	Sheet   string
	Row     int
	Column  int
	Address string
	Formula string
}

// Workbook combines the sheet, formula and named range tables and keeps
// every formula pointing at the right cells across structural edits
type Workbook struct {
	storage *Storage
	version Version
	logger  logrus.FieldLogger
}

// NewWorkbook creates an empty workbook with the grid limits of a file
// format. a nil logger discards all log output.
func NewWorkbook(version Version, logger logrus.FieldLogger) *Workbook {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Workbook{
		storage: NewStorage(),
		version: version,
		logger:  logger,
	}
}

type WorkbookInterface interface {
	// sheet methods

	AddSheet(name string) error
	RenameSheet(oldName, newName string) error
	ListSheets() []string
	MoveSheet(name string, to int) (EditReport, error)

	// formula methods

	SetFormula(address, formula string) error
	GetFormula(address string) (string, error)
	RemoveFormula(address string) error
	Formulas() ([]FormulaCell, error)

	// named range methods

	DefineName(name, formula string) error
	GetName(name string) (string, error)
	RemoveName(name string) error

	// structural edits

	MoveRows(sheet string, first, last, delta int) (EditReport, error)
	CopyRows(sheet string, first, last, delta int) (EditReport, error)
	InsertRows(sheet string, at, count int) (EditReport, error)
	DeleteRows(sheet string, at, count int) (EditReport, error)
	MoveColumns(sheet string, first, last, delta int) (EditReport, error)
	CopyColumns(sheet string, first, last, delta int) (EditReport, error)
	InsertColumns(sheet string, at, count int) (EditReport, error)
	DeleteColumns(sheet string, at, count int) (EditReport, error)
}

// Implementation of WorkbookInterface

var _ WorkbookInterface = (*Workbook)(nil)

// Version returns the file format the workbook is bound to
func (w *Workbook) Version() Version {
	return w.version
}

// AddSheet appends a worksheet
func (w *Workbook) AddSheet(name string) error {
	id, err := w.storage.sheets.Add(name)
	if err != nil {
		return err
	}
	w.logger.WithFields(logrus.Fields{"sheet": name, "id": id}).Debug("sheet added")
	return nil
}

// RenameSheet renames a worksheet. references bound to it by position
// render with the new name.
func (w *Workbook) RenameSheet(oldName, newName string) error {
	return w.storage.sheets.Rename(oldName, newName)
}

// ListSheets returns sheet names in position order
func (w *Workbook) ListSheets() []string {
	return w.storage.sheets.Names()
}

// resolveAddress parses an address such as "Sheet1!B2" into a cell address
func (w *Workbook) resolveAddress(address string) (CellAddress, error) {
	ref, err := NewParser(w.storage.parserContext(w.version)).ParseRef(address)
	if err != nil {
		return CellAddress{}, err
	}
	cell, ok := ref.(CellRef)
	if !ok {
		return CellAddress{}, NewApplicationError(InvalidArgument, fmt.Sprintf("address is not a single cell: %s", address))
	}

	switch b := cell.Sheet.(type) {
	case nil:
		return CellAddress{}, NewApplicationError(InvalidArgument, fmt.Sprintf("address must name a sheet: %s", address))
	case SheetName:
		// the parser binds names it could not resolve
		if _, err := w.storage.sheets.Lookup(b.Name); err != nil {
			return CellAddress{}, err
		}
		return CellAddress{}, NewApplicationError(InvalidArgument, fmt.Sprintf("address must not point into another workbook: %s", address))
	case SheetIndex:
		id, _ := w.storage.sheets.IDAt(int(b))
		return CellAddress{WorksheetID: id, Row: cell.Row, Column: cell.Column}, nil
	}
	return CellAddress{}, NewApplicationError(Internal, fmt.Sprintf("unexpected sheet binding %T", cell.Sheet))
}

// parse turns formula text into tokens bound to this workbook's sheets
func (w *Workbook) parse(formula string) ([]Token, error) {
	return NewParser(w.storage.parserContext(w.version)).Parse(formula)
}

// render turns tokens back into formula text with the leading '='
func (w *Workbook) render(tokens []Token) (string, error) {
	text, err := Render(tokens, w.storage.renderContext())
	if err != nil {
		return "", err
	}
	return "=" + text, nil
}

// SetFormula stores a formula in a cell. the address must name its sheet.
func (w *Workbook) SetFormula(address, formula string) error {
	cell, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	return w.setFormulaAt(cell, formula)
}

// SetFormulaAt stores a formula in a cell given by sheet name and
// zero-based coordinates
func (w *Workbook) SetFormulaAt(sheet string, row, col int, formula string) error {
	id, err := w.storage.sheets.Lookup(sheet)
	if err != nil {
		return err
	}
	if row < 0 || row > w.version.LastRowIndex() || col < 0 || col > w.version.LastColumnIndex() {
		return NewApplicationError(OutOfRange, fmt.Sprintf("cell (%d, %d) is outside the %s grid", row, col, w.version))
	}
	return w.setFormulaAt(CellAddress{WorksheetID: id, Row: row, Column: col}, formula)
}

func (w *Workbook) setFormulaAt(cell CellAddress, formula string) error {
	tokens, err := w.parse(formula)
	if err != nil {
		return err
	}
	w.storage.formulas.Set(cell, tokens)
	return nil
}

// GetFormula returns the formula text of a cell, including the leading '='
func (w *Workbook) GetFormula(address string) (string, error) {
	cell, err := w.resolveAddress(address)
	if err != nil {
		return "", err
	}
	tokens, exists := w.storage.formulas.Get(cell)
	if !exists {
		return "", NewApplicationError(NotFound, fmt.Sprintf("no formula at %s", address))
	}
	return w.render(tokens)
}

// RemoveFormula clears the formula of a cell
func (w *Workbook) RemoveFormula(address string) error {
	cell, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	w.storage.formulas.Remove(cell)
	return nil
}

// Formulas returns every formula of the workbook ordered by sheet position,
// then row, then column
func (w *Workbook) Formulas() ([]FormulaCell, error) {
	result := make([]FormulaCell, 0, w.storage.formulas.Count())
	for index, sheet := range w.storage.sheets.Names() {
		id, _ := w.storage.sheets.IDAt(index)
		for _, cell := range w.storage.formulas.CellsOn(id) {
			tokens, _ := w.storage.formulas.Get(cell)
			text, err := w.render(tokens)
			if err != nil {
				return nil, err
			}
			name, err := excelize.CoordinatesToCellName(cell.Column+1, cell.Row+1)
			if err != nil {
				return nil, NewApplicationError(OutOfRange, err.Error())
			}
			result = append(result, FormulaCell{
				Sheet:   sheet,
				Row:     cell.Row,
				Column:  cell.Column,
				Address: formatSheetName(0, sheet) + "!" + name,
				Formula: text,
			})
		}
	}
	return result, nil
}

// DefineName defines or redefines a workbook level name
func (w *Workbook) DefineName(name, formula string) error {
	if name == "" {
		return NewApplicationError(InvalidArgument, "name must not be empty")
	}
	tokens, err := w.parse(formula)
	if err != nil {
		return err
	}
	w.storage.namedRanges.Define(name, tokens)
	return nil
}

// GetName returns the definition of a name, including the leading '='
func (w *Workbook) GetName(name string) (string, error) {
	tokens, exists := w.storage.namedRanges.Get(name)
	if !exists {
		return "", NewApplicationError(NotFound, fmt.Sprintf("named range not found: %s", name))
	}
	return w.render(tokens)
}

// RemoveName deletes a workbook level name
func (w *Workbook) RemoveName(name string) error {
	if !w.storage.namedRanges.Undefine(name) {
		return NewApplicationError(NotFound, fmt.Sprintf("named range not found: %s", name))
	}
	return nil
}

// ListNames returns all defined names, sorted
func (w *Workbook) ListNames() []string {
	return w.storage.namedRanges.Names()
}

// MoveSheet reorders a sheet to a new position and rebinds every reference
// that points at a sheet by position
func (w *Workbook) MoveSheet(name string, to int) (EditReport, error) {
	id, err := w.storage.sheets.Lookup(name)
	if err != nil {
		return EditReport{}, err
	}
	src := w.storage.sheetPosition(id)
	shifter, err := NewSheetMove(src, to)
	if err != nil {
		return EditReport{}, err
	}
	if err := w.storage.sheets.Move(src, to); err != nil {
		return EditReport{}, err
	}

	report := w.adjustAll(shifter)
	w.logEdit(shifter, name, report)
	return report, nil
}

// RunnableWorkbook provides a chainable interface for workbook operations.
// wraps the standard Workbook, tracks errors internally and accumulates the
// reports of the edits it runs
type RunnableWorkbook struct {
	workbook *Workbook
	report   EditReport
	err      error
	printLn  func(string)
}

// NewRunnableWorkbook creates a new RunnableWorkbook. printLn is required
// and will be used by Log and CheckError
func NewRunnableWorkbook(workbook *Workbook, printLn func(string)) *RunnableWorkbook {
	return &RunnableWorkbook{
		workbook: workbook,
		printLn:  printLn,
	}
}

// AddSheet adds a new worksheet (chainable)
func (r *RunnableWorkbook) AddSheet(name string) *RunnableWorkbook {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	r.err = r.workbook.AddSheet(name)
	return r
}

// WithSheet ensures a worksheet exists before continuing (chainable)
func (r *RunnableWorkbook) WithSheet(name string) *RunnableWorkbook {
	if r.err != nil {
		return r
	}
	if !r.workbook.storage.sheets.Contains(name) {
		r.err = r.workbook.AddSheet(name)
	}
	return r
}

// SetFormula stores a formula (chainable)
func (r *RunnableWorkbook) SetFormula(address, formula string) *RunnableWorkbook {
	if r.err != nil {
		return r
	}
	r.err = r.workbook.SetFormula(address, formula)
	return r
}

// SetBatch stores multiple formulas at once (chainable)
func (r *RunnableWorkbook) SetBatch(formulas map[string]string) *RunnableWorkbook {
	if r.err != nil {
		return r
	}
	for address, formula := range formulas {
		if err := r.workbook.SetFormula(address, formula); err != nil {
			r.err = err
			return r
		}
	}
	return r
}

// DefineName defines a workbook level name (chainable)
func (r *RunnableWorkbook) DefineName(name, formula string) *RunnableWorkbook {
	if r.err != nil {
		return r
	}
	r.err = r.workbook.DefineName(name, formula)
	return r
}

// Edit runs a structural edit and adds its report to the running total
// (chainable)
func (r *RunnableWorkbook) Edit(fn func(*Workbook) (EditReport, error)) *RunnableWorkbook {
	if r.err != nil {
		return r
	}
	report, err := fn(r.workbook)
	if err != nil {
		r.err = err
		return r
	}
	r.report.Add(report)
	return r
}

// MoveRows moves rows (chainable)
func (r *RunnableWorkbook) MoveRows(sheet string, first, last, delta int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.MoveRows(sheet, first, last, delta)
	})
}

// CopyRows copies rows (chainable)
func (r *RunnableWorkbook) CopyRows(sheet string, first, last, delta int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.CopyRows(sheet, first, last, delta)
	})
}

// InsertRows inserts rows (chainable)
func (r *RunnableWorkbook) InsertRows(sheet string, at, count int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.InsertRows(sheet, at, count)
	})
}

// DeleteRows deletes rows (chainable)
func (r *RunnableWorkbook) DeleteRows(sheet string, at, count int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.DeleteRows(sheet, at, count)
	})
}

// MoveColumns moves columns (chainable)
func (r *RunnableWorkbook) MoveColumns(sheet string, first, last, delta int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.MoveColumns(sheet, first, last, delta)
	})
}

// CopyColumns copies columns (chainable)
func (r *RunnableWorkbook) CopyColumns(sheet string, first, last, delta int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.CopyColumns(sheet, first, last, delta)
	})
}

// InsertColumns inserts columns (chainable)
func (r *RunnableWorkbook) InsertColumns(sheet string, at, count int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.InsertColumns(sheet, at, count)
	})
}

// DeleteColumns deletes columns (chainable)
func (r *RunnableWorkbook) DeleteColumns(sheet string, at, count int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.DeleteColumns(sheet, at, count)
	})
}

// MoveSheet reorders a sheet (chainable)
func (r *RunnableWorkbook) MoveSheet(name string, to int) *RunnableWorkbook {
	return r.Edit(func(w *Workbook) (EditReport, error) {
		return w.MoveSheet(name, to)
	})
}

// Formula is a helper to read a single formula from the chain
func (r *RunnableWorkbook) Formula(address string) string {
	if r.err != nil {
		return ""
	}
	formula, err := r.workbook.GetFormula(address)
	if err != nil {
		r.err = err
		return ""
	}
	return formula
}

// Run returns the workbook, the accumulated report and any error.
// typically the last method in the chain
func (r *RunnableWorkbook) Run() (*Workbook, EditReport, error) {
	if r.err != nil {
		return nil, r.report, r.err
	}
	return r.workbook, r.report, nil
}

// Error returns the current error state
func (r *RunnableWorkbook) Error() error {
	return r.err
}

// Report returns the accumulated edit report
func (r *RunnableWorkbook) Report() EditReport {
	return r.report
}

// Then allows conditional execution based on current error state
func (r *RunnableWorkbook) Then(fn func(*RunnableWorkbook) *RunnableWorkbook) *RunnableWorkbook {
	if r.err != nil {
		return r // skip if there's an error
	}
	return fn(r)
}

// OnError allows error handling in the chain
func (r *RunnableWorkbook) OnError(fn func(error) error) *RunnableWorkbook {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if there's an error (chainable)
func (r *RunnableWorkbook) Must() *RunnableWorkbook {
	if r.err != nil {
		panic(r.err)
	}
	return r
}

// CheckError logs the current error using the printLn function (chainable)
func (r *RunnableWorkbook) CheckError() *RunnableWorkbook {
	if r.err != nil {
		r.printLn(fmt.Sprintf("ERROR: %v", r.err))
	} else {
		r.printLn("No errors")
	}
	return r
}

// Log prints the formula of a cell using the printLn function (chainable)
func (r *RunnableWorkbook) Log(address string) *RunnableWorkbook {
	if r.err != nil {
		return r
	}
	formula, err := r.workbook.GetFormula(address)
	if err != nil {
		r.err = err
		return r
	}
	r.printLn(fmt.Sprintf("%s: %s", address, formula))
	return r
}
