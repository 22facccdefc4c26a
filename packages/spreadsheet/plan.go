package spreadsheet

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// plan step operations
const (
	OpMoveRows      = "move-rows"
	OpCopyRows      = "copy-rows"
	OpInsertRows    = "insert-rows"
	OpDeleteRows    = "delete-rows"
	OpMoveColumns   = "move-columns"
	OpCopyColumns   = "copy-columns"
	OpInsertColumns = "insert-columns"
	OpDeleteColumns = "delete-columns"
	OpMoveSheet     = "move-sheet"
)

// Plan is an ordered list of structural edits read from a toml or yaml file
//
//	format = "xlsx"
//
//	[[step]]
//	op = "insert-rows"
//	sheet = "Data"
//	first = 3
//	count = 2
//
// row and column numbers are one-based as displayed by excel (column 1 is
// A). sheet positions for move-sheet are one-based too.
type Plan struct {
	Format string     `toml:"format" yaml:"format"`
	Steps  []PlanStep `toml:"step" yaml:"steps"`
}

// PlanStep is one edit of a plan. which fields matter depends on Op.
type PlanStep struct {
	Op    string `toml:"op" yaml:"op"`
	Sheet string `toml:"sheet" yaml:"sheet"`
	First int    `toml:"first" yaml:"first"`
	Last  int    `toml:"last" yaml:"last"`
	Delta int    `toml:"delta" yaml:"delta"`
	Count int    `toml:"count" yaml:"count"`
	To    int    `toml:"to" yaml:"to"`
}

// LoadPlan reads a plan file, picking the decoder by extension
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read plan %s", path)
	}
	plan, err := ParsePlan(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "parse plan %s", path)
	}
	return plan, nil
}

// ParsePlan decodes a plan. syntax is "toml", "yaml" or "yml", with or
// without a leading dot. unknown keys are rejected.
func ParsePlan(data []byte, syntax string) (*Plan, error) {
	var plan Plan
	switch strings.ToLower(strings.TrimPrefix(syntax, ".")) {
	case "toml":
		md, err := toml.Decode(string(data), &plan)
		if err != nil {
			return nil, errors.Wrap(err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("unknown plan keys: %v", undecoded))
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&plan); err != nil {
			return nil, errors.Wrap(err, "decode yaml")
		}
	default:
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("unsupported plan format: %q", syntax))
	}

	for i, step := range plan.Steps {
		if err := step.Validate(); err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
	}
	return &plan, nil
}

// Version returns the file format named by the plan, Excel2007 when unset
func (p *Plan) Version() (Version, error) {
	return ParseVersion(p.Format)
}

// Validate checks that a step carries the fields its operation needs
func (s PlanStep) Validate() error {
	if s.Sheet == "" {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("%s: sheet is required", s.Op))
	}
	switch s.Op {
	case OpMoveRows, OpCopyRows, OpMoveColumns, OpCopyColumns:
		if s.First < 1 || s.Last < s.First {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("%s: need 1 <= first <= last, got %d..%d", s.Op, s.First, s.Last))
		}
		if s.Delta == 0 {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("%s: delta must not be zero", s.Op))
		}
	case OpInsertRows, OpDeleteRows, OpInsertColumns, OpDeleteColumns:
		if s.First < 1 || s.Count < 1 {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("%s: need first >= 1 and count >= 1", s.Op))
		}
	case OpMoveSheet:
		if s.To < 1 {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("%s: to must be a sheet position >= 1", s.Op))
		}
	default:
		return NewApplicationError(InvalidArgument, fmt.Sprintf("unknown operation: %q", s.Op))
	}
	return nil
}

// Apply runs the step against a workbook. one-based plan numbers become
// zero-based indices here.
func (s PlanStep) Apply(w *Workbook) (EditReport, error) {
	first, last := s.First-1, s.Last-1
	switch s.Op {
	case OpMoveRows:
		return w.MoveRows(s.Sheet, first, last, s.Delta)
	case OpCopyRows:
		return w.CopyRows(s.Sheet, first, last, s.Delta)
	case OpInsertRows:
		return w.InsertRows(s.Sheet, first, s.Count)
	case OpDeleteRows:
		return w.DeleteRows(s.Sheet, first, s.Count)
	case OpMoveColumns:
		return w.MoveColumns(s.Sheet, first, last, s.Delta)
	case OpCopyColumns:
		return w.CopyColumns(s.Sheet, first, last, s.Delta)
	case OpInsertColumns:
		return w.InsertColumns(s.Sheet, first, s.Count)
	case OpDeleteColumns:
		return w.DeleteColumns(s.Sheet, first, s.Count)
	case OpMoveSheet:
		return w.MoveSheet(s.Sheet, s.To-1)
	}
	return EditReport{}, NewApplicationError(InvalidArgument, fmt.Sprintf("unknown operation: %q", s.Op))
}

// Shifter builds the descriptor of the step for a workbook whose sheets
// are named, in position order, by sheets. it lets callers adjust token
// sequences directly, without a Workbook. inserts and deletes reaching the
// last row or column move no band and are rejected, use Adjuster for those.
func (s PlanStep) Shifter(sheets []string, version Version) (*Shifter, error) {
	version = version.orDefault()
	index, err := sheetIndexIn(sheets, s.Sheet)
	if err != nil {
		return nil, err
	}
	sheet := sheets[index]

	first, last, delta := s.First-1, s.Last-1, s.Delta
	switch s.Op {
	case OpMoveRows:
		return NewRowMove(index, sheet, first, last, delta, version)
	case OpCopyRows:
		return NewRowCopy(index, sheet, first, last, delta, version)
	case OpInsertRows:
		first, last, delta = insertSpan(version.LastRowIndex(), s.First-1, s.Count)
		return NewRowMove(index, sheet, first, last, delta, version)
	case OpDeleteRows:
		first, last, delta = deleteSpan(version.LastRowIndex(), s.First-1, s.Count)
		return NewRowMove(index, sheet, first, last, delta, version)
	case OpMoveColumns:
		return NewColumnMove(index, sheet, first, last, delta, version)
	case OpCopyColumns:
		return NewColumnCopy(index, sheet, first, last, delta, version)
	case OpInsertColumns:
		first, last, delta = insertSpan(version.LastColumnIndex(), s.First-1, s.Count)
		return NewColumnMove(index, sheet, first, last, delta, version)
	case OpDeleteColumns:
		first, last, delta = deleteSpan(version.LastColumnIndex(), s.First-1, s.Count)
		return NewColumnMove(index, sheet, first, last, delta, version)
	case OpMoveSheet:
		return NewSheetMove(index, s.To-1)
	}
	return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("unknown operation: %q", s.Op))
}

// Adjuster builds what rewrites formulas for the step, the way the workbook
// would: a Shifter, or a tail cut for inserts and deletes that reach the
// last row or column
func (s PlanStep) Adjuster(sheets []string, version Version) (Adjuster, error) {
	version = version.orDefault()
	rows, limit := true, version.LastRowIndex()
	switch s.Op {
	case OpInsertRows, OpDeleteRows:
	case OpInsertColumns, OpDeleteColumns:
		rows, limit = false, version.LastColumnIndex()
	default:
		return s.Shifter(sheets, version)
	}

	at := s.First - 1
	if at < 0 || s.Count < 1 || at+s.Count > limit+1 {
		return nil, NewApplicationError(OutOfRange, fmt.Sprintf("step %s does not fit a sheet ending at %d", s, limit+1))
	}
	if at+s.Count <= limit {
		return s.Shifter(sheets, version)
	}
	index, err := sheetIndexIn(sheets, s.Sheet)
	if err != nil {
		return nil, err
	}
	truncate := s.Op == OpDeleteRows || s.Op == OpDeleteColumns
	return newTailCut(rows, index, sheets[index], at, truncate), nil
}

func sheetIndexIn(sheets []string, name string) (int, error) {
	for i, sheet := range sheets {
		if strings.EqualFold(sheet, name) {
			return i, nil
		}
	}
	return -1, NewApplicationError(NotFound, fmt.Sprintf("sheet not found: %s", name))
}

// Apply runs every step in order and stops at the first failure
func (p *Plan) Apply(w *Workbook) (EditReport, error) {
	r := NewRunnableWorkbook(w, func(string) {})
	for i, step := range p.Steps {
		if err := r.Edit(step.Apply).Error(); err != nil {
			return r.Report(), errors.Wrapf(err, "step %d (%s)", i+1, step)
		}
	}
	return r.Report(), nil
}

// String describes the step the way plan files spell it
func (s PlanStep) String() string {
	switch s.Op {
	case OpInsertRows, OpDeleteRows, OpInsertColumns, OpDeleteColumns:
		return fmt.Sprintf("%s %s at %d count %d", s.Op, s.Sheet, s.First, s.Count)
	case OpMoveSheet:
		return fmt.Sprintf("%s %s to %d", s.Op, s.Sheet, s.To)
	}
	return fmt.Sprintf("%s %s %d..%d by %d", s.Op, s.Sheet, s.First, s.Last, s.Delta)
}
