package spreadsheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
)

// SheetTable manages worksheet names, stable IDs and sheet order
type SheetTable struct {
	// core name/ID mapping. names are case-folded for lookup, the way excel
	// treats "Sheet1" and "SHEET1" as the same sheet.

	nameToID map[string]uint32 // folded name -> ID
	idToName map[uint32]string // ID -> name as given

	// sheet positions, order[i] is the ID of the sheet at position i

	order []uint32

	nextID uint32
	fold   cases.Caser
}

// NewSheetTable creates a new sheet table
func NewSheetTable() *SheetTable {
	return &SheetTable{
		nameToID: make(map[string]uint32),
		idToName: make(map[uint32]string),
		order:    make([]uint32, 0),
		nextID:   1, // start at 1, reserve 0 for no worksheet
		fold:     cases.Fold(),
	}
}

func (st *SheetTable) key(name string) string {
	return st.fold.String(name)
}

// validateSheetName checks a name against the rules excel applies to sheet
// tabs
func validateSheetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewApplicationError(InvalidArgument, "sheet name must not be empty")
	}
	if len([]rune(name)) > 31 {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("sheet name is longer than 31 characters: %s", name))
	}
	if strings.ContainsAny(name, invalidSheetNameChars) {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("sheet name contains an invalid character: %s", name))
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("sheet name must not start or end with a quote: %s", name))
	}
	return nil
}

// Add appends a sheet at the last position and returns its ID
func (st *SheetTable) Add(name string) (uint32, error) {
	if err := validateSheetName(name); err != nil {
		return 0, err
	}
	if _, exists := st.nameToID[st.key(name)]; exists {
		return 0, NewApplicationError(AlreadyExists, fmt.Sprintf("sheet already exists: %s", name))
	}

	id := st.nextID
	st.nameToID[st.key(name)] = id
	st.idToName[id] = name
	st.order = append(st.order, id)
	st.nextID++

	return id, nil
}

// Rename changes a sheet's name. its ID and position are unchanged.
func (st *SheetTable) Rename(oldName, newName string) error {
	id, err := st.Lookup(oldName)
	if err != nil {
		return err
	}
	if err := validateSheetName(newName); err != nil {
		return err
	}
	if other, exists := st.nameToID[st.key(newName)]; exists && other != id {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("sheet already exists: %s", newName))
	}

	delete(st.nameToID, st.key(oldName))
	st.nameToID[st.key(newName)] = id
	st.idToName[id] = newName
	return nil
}

// Move reorders the sheet at position src to position dst. sheets in
// between slide by one position.
func (st *SheetTable) Move(src, dst int) error {
	if src < 0 || src >= len(st.order) {
		return NewApplicationError(OutOfRange, fmt.Sprintf("no sheet at position %d", src))
	}
	if dst < 0 || dst >= len(st.order) {
		return NewApplicationError(OutOfRange, fmt.Sprintf("sheet position %d is out of range [0, %d)", dst, len(st.order)))
	}

	id := st.order[src]
	if src < dst {
		copy(st.order[src:dst], st.order[src+1:dst+1])
	} else {
		copy(st.order[dst+1:src+1], st.order[dst:src])
	}
	st.order[dst] = id
	return nil
}

// Lookup returns the ID for a sheet name. unknown names yield a NotFound
// error that suggests the closest existing name.
func (st *SheetTable) Lookup(name string) (uint32, error) {
	if id, exists := st.nameToID[st.key(name)]; exists {
		return id, nil
	}
	msg := fmt.Sprintf("sheet not found: %s", name)
	if suggestion, ok := st.suggest(name); ok {
		msg = fmt.Sprintf("%s (did you mean %q?)", msg, suggestion)
	}
	return 0, NewApplicationError(NotFound, msg)
}

func (st *SheetTable) suggest(name string) (string, bool) {
	ranks := fuzzy.RankFindFold(name, st.Names())
	if len(ranks) == 0 {
		return "", false
	}
	sort.Sort(ranks)
	return ranks[0].Target, true
}

// ID returns the ID for a sheet name
func (st *SheetTable) ID(name string) (uint32, bool) {
	id, exists := st.nameToID[st.key(name)]
	return id, exists
}

// IDAt returns the ID of the sheet at a position
func (st *SheetTable) IDAt(index int) (uint32, bool) {
	if index < 0 || index >= len(st.order) {
		return 0, false
	}
	return st.order[index], true
}

// Index returns the position of a sheet by name
func (st *SheetTable) Index(name string) (int, bool) {
	id, exists := st.ID(name)
	if !exists {
		return -1, false
	}
	return st.IndexOf(id)
}

// IndexOf returns the position of a sheet by ID
func (st *SheetTable) IndexOf(id uint32) (int, bool) {
	for i, other := range st.order {
		if other == id {
			return i, true
		}
	}
	return -1, false
}

// Name returns the name of the sheet at a position
func (st *SheetTable) Name(index int) (string, bool) {
	id, ok := st.IDAt(index)
	if !ok {
		return "", false
	}
	return st.idToName[id], true
}

// NameOf returns the name of a sheet by ID
func (st *SheetTable) NameOf(id uint32) (string, bool) {
	name, exists := st.idToName[id]
	return name, exists
}

// Names returns sheet names in position order
func (st *SheetTable) Names() []string {
	result := make([]string, 0, len(st.order))
	for _, id := range st.order {
		result = append(result, st.idToName[id])
	}
	return result
}

// Contains checks if a sheet exists
func (st *SheetTable) Contains(name string) bool {
	_, exists := st.nameToID[st.key(name)]
	return exists
}

// Count returns the number of sheets
func (st *SheetTable) Count() int {
	return len(st.order)
}

// Clear removes all sheets
func (st *SheetTable) Clear() {
	st.nameToID = make(map[string]uint32)
	st.idToName = make(map[uint32]string)
	st.order = st.order[:0]
	st.nextID = 1
}
