package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// options holds the command line flags
type options struct {
	xlsxPath string
	planPath string
	format   string
	sheet    string
	sheets   string
	from     string
	op       string
	first    int
	last     int
	delta    int
	count    int
	to       int
	verbose  bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.xlsxPath, "xlsx", "", "spreadsheet file to load; prints every formula the edits would change")
	fs.StringVar(&o.planPath, "plan", "", "toml or yaml file listing the edits to apply")
	fs.StringVar(&o.format, "format", "", "grid limits: xls or xlsx (defaults to the plan's format, then the file extension)")
	fs.StringVar(&o.sheet, "sheet", "Sheet1", "sheet the single edit applies to")
	fs.StringVar(&o.sheets, "sheets", "Sheet1", "comma separated sheet names, in order, for formula arguments")
	fs.StringVar(&o.from, "from", "", "sheet holding the formula arguments (defaults to -sheet)")
	fs.StringVar(&o.op, "op", "", "single edit: move-rows, copy-rows, insert-rows, delete-rows, move-columns, copy-columns, insert-columns, delete-columns, move-sheet")
	fs.IntVar(&o.first, "first", 0, "first row or column of the band, one-based")
	fs.IntVar(&o.last, "last", 0, "last row or column of the band, one-based")
	fs.IntVar(&o.delta, "delta", 0, "rows or columns to move or copy the band by")
	fs.IntVar(&o.count, "count", 1, "rows or columns to insert or delete")
	fs.IntVar(&o.to, "to", 0, "new one-based position for move-sheet")
	fs.BoolVar(&o.verbose, "v", false, "log debug output")
}

func main() {
	opts := &options{}
	opts.register(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: refshift [flags] [formula ...]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "shifts cell references in formulas the way a spreadsheet does when rows,\n")
		fmt.Fprintf(flag.CommandLine.Output(), "columns or sheets move. cell values are never written.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	if len(flag.Args()) == 0 && opts.xlsxPath == "" {
		flag.Usage()
	}
	if err := run(logger, opts, os.Stdout, flag.Args()); err != nil {
		logger.WithError(err).Fatal("refshift failed")
	}
}

func run(logger logrus.FieldLogger, opts *options, out io.Writer, formulas []string) error {
	plan, err := buildPlan(opts)
	if err != nil {
		return err
	}
	version, err := pickVersion(opts, plan)
	if err != nil {
		return err
	}

	if opts.xlsxPath != "" {
		return dryRun(logger, opts.xlsxPath, plan, version, out)
	}
	if len(formulas) == 0 {
		return errors.New("nothing to do: pass -xlsx or formula arguments")
	}
	return shiftFormulas(opts, plan, version, formulas, out)
}

// buildPlan reads -plan or turns the single edit flags into a one step plan
func buildPlan(opts *options) (*spreadsheet.Plan, error) {
	if opts.planPath != "" {
		return spreadsheet.LoadPlan(opts.planPath)
	}
	if opts.op == "" {
		return nil, errors.New("either -plan or -op is required")
	}
	step := spreadsheet.PlanStep{
		Op:    opts.op,
		Sheet: opts.sheet,
		First: opts.first,
		Last:  opts.last,
		Delta: opts.delta,
		Count: opts.count,
		To:    opts.to,
	}
	if step.Last == 0 {
		step.Last = step.First
	}
	if err := step.Validate(); err != nil {
		return nil, err
	}
	return &spreadsheet.Plan{Steps: []spreadsheet.PlanStep{step}}, nil
}

func pickVersion(opts *options, plan *spreadsheet.Plan) (spreadsheet.Version, error) {
	switch {
	case opts.format != "":
		return spreadsheet.ParseVersion(opts.format)
	case plan.Format != "":
		return plan.Version()
	case opts.xlsxPath != "":
		return spreadsheet.ParseVersion(filepath.Ext(opts.xlsxPath))
	}
	return spreadsheet.Excel2007, nil
}

// dryRun loads a file, applies the plan in memory and prints each formula
// whose text changed
func dryRun(logger logrus.FieldLogger, path string, plan *spreadsheet.Plan, version spreadsheet.Version, out io.Writer) error {
	wb, err := spreadsheet.LoadXLSX(path, version, logger)
	if err != nil {
		return err
	}

	// sheet moves do not rekey cells, so names stay usable as keys
	before, err := wb.Formulas()
	if err != nil {
		return err
	}
	previous := make(map[string]string, len(before))
	for _, cell := range before {
		previous[cellKey(cell)] = cell.Formula
	}

	report, err := plan.Apply(wb)
	if err != nil {
		return err
	}

	after, err := wb.Formulas()
	if err != nil {
		return err
	}
	for _, cell := range after {
		old, existed := previous[cellKey(cell)]
		switch {
		case !existed:
			fmt.Fprintf(out, "%s: %s (new)\n", cell.Address, cell.Formula)
		case old != cell.Formula:
			fmt.Fprintf(out, "%s: %s -> %s\n", cell.Address, old, cell.Formula)
		}
	}
	for _, name := range wb.ListNames() {
		definition, err := wb.GetName(name)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"name": name, "refers_to": definition}).Debug("defined name")
	}
	fmt.Fprintf(out, "%d formulas changed, %d references broken\n", report.Changed, report.Broken)
	return nil
}

func cellKey(cell spreadsheet.FormulaCell) string {
	return fmt.Sprintf("%s\x00%d\x00%d", strings.ToLower(cell.Sheet), cell.Row, cell.Column)
}

// shiftFormulas adjusts formula arguments directly and prints the result,
// one formula per line
func shiftFormulas(opts *options, plan *spreadsheet.Plan, version spreadsheet.Version, formulas []string, out io.Writer) error {
	order := strings.Split(opts.sheets, ",")
	for i := range order {
		order[i] = strings.TrimSpace(order[i])
	}
	holder := opts.from
	if holder == "" {
		holder = opts.sheet
	}

	parser := spreadsheet.NewParser(&spreadsheet.ParserContext{
		ResolveSheet: func(name string) (int, bool) { return indexOf(order, name) },
		Version:      version,
	})

	parsed := make([][]spreadsheet.Token, len(formulas))
	for i, formula := range formulas {
		tokens, err := parser.Parse(formula)
		if err != nil {
			return errors.Wrapf(err, "parse %q", formula)
		}
		parsed[i] = tokens
	}

	for _, step := range plan.Steps {
		edit, err := step.Adjuster(order, version)
		if err != nil {
			return errors.Wrapf(err, "step %s", step)
		}
		shifter, isShifter := edit.(*spreadsheet.Shifter)
		sheetMove := isShifter && shifter.Mode() == spreadsheet.SheetMove
		if sheetMove {
			if _, dst := shifter.SheetPositions(); dst >= len(order) {
				return errors.Errorf("step %s: only %d sheets listed in -sheets", step, len(order))
			}
		}
		// the holder's position changes with every sheet move
		current, ok := indexOf(order, holder)
		if !ok {
			return errors.Errorf("sheet %q is not listed in -sheets", holder)
		}
		for _, tokens := range parsed {
			edit.Adjust(tokens, current)
		}
		if sheetMove {
			src, dst := shifter.SheetPositions()
			order = reorder(order, src, dst)
		}
	}

	rc := &spreadsheet.RenderContext{SheetName: func(i int) (string, bool) {
		if i < 0 || i >= len(order) {
			return "", false
		}
		return order[i], true
	}}
	for _, tokens := range parsed {
		text, err := spreadsheet.Render(tokens, rc)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "="+text)
	}
	return nil
}

func indexOf(names []string, name string) (int, bool) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return -1, false
}

// reorder returns names with the entry at src moved to dst
func reorder(names []string, src, dst int) []string {
	out := make([]string, 0, len(names))
	moved := names[src]
	for i, n := range names {
		if i != src {
			out = append(out, n)
		}
	}
	out = append(out[:dst], append([]string{moved}, out[dst:]...)...)
	return out
}
