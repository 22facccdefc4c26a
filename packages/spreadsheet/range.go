package spreadsheet

import (
	"fmt"
	"iter"
	"sort"

	"golang.org/x/text/cases"
)

// NamedRangeTable manages workbook level defined names. a definition is a
// parsed formula, usually a 3D reference such as Sheet1!$A$1:$B$4, and is
// adjusted by structural edits like any cell formula.
type NamedRangeTable struct {
	// core name/ID mapping. like sheet names, defined names are
	// case-insensitive.

	nameToID map[string]uint32 // folded name -> ID
	idToName map[uint32]string // ID -> name as given

	// range definitions

	definitions map[uint32][]Token

	nextID uint32
	fold   cases.Caser
}

// NewNamedRangeTable creates a new named range table
func NewNamedRangeTable() *NamedRangeTable {
	return &NamedRangeTable{
		nameToID:    make(map[string]uint32),
		idToName:    make(map[uint32]string),
		definitions: make(map[uint32][]Token),
		nextID:      1, // start at 1, reserve 0 for no range
		fold:        cases.Fold(),
	}
}

// Define defines or redefines a named range. returns the ID of the name.
func (nrt *NamedRangeTable) Define(name string, tokens []Token) uint32 {
	key := nrt.fold.String(name)
	if id, exists := nrt.nameToID[key]; exists {
		nrt.definitions[id] = tokens
		return id
	}

	id := nrt.nextID
	nrt.nameToID[key] = id
	nrt.idToName[id] = name
	nrt.definitions[id] = tokens
	nrt.nextID++
	return id
}

// Undefine removes a named range. returns true if it existed.
func (nrt *NamedRangeTable) Undefine(name string) bool {
	key := nrt.fold.String(name)
	id, exists := nrt.nameToID[key]
	if !exists {
		return false
	}
	delete(nrt.nameToID, key)
	delete(nrt.idToName, id)
	delete(nrt.definitions, id)
	return true
}

// Rename changes the name of a defined range, keeping its definition
func (nrt *NamedRangeTable) Rename(oldName, newName string) error {
	id, exists := nrt.nameToID[nrt.fold.String(oldName)]
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("named range not found: %s", oldName))
	}
	if other, exists := nrt.nameToID[nrt.fold.String(newName)]; exists && other != id {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("named range already exists: %s", newName))
	}
	delete(nrt.nameToID, nrt.fold.String(oldName))
	nrt.nameToID[nrt.fold.String(newName)] = id
	nrt.idToName[id] = newName
	return nil
}

// Get returns the definition of a named range
func (nrt *NamedRangeTable) Get(name string) ([]Token, bool) {
	id, exists := nrt.nameToID[nrt.fold.String(name)]
	if !exists {
		return nil, false
	}
	return nrt.definitions[id], true
}

// Contains checks if a named range exists
func (nrt *NamedRangeTable) Contains(name string) bool {
	_, exists := nrt.nameToID[nrt.fold.String(name)]
	return exists
}

// Names returns all defined names, sorted
func (nrt *NamedRangeTable) Names() []string {
	result := make([]string, 0, len(nrt.idToName))
	for _, name := range nrt.idToName {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// All iterates over names and their definitions in name order
func (nrt *NamedRangeTable) All() iter.Seq2[string, []Token] {
	return func(yield func(string, []Token) bool) {
		for _, name := range nrt.Names() {
			id := nrt.nameToID[nrt.fold.String(name)]
			if !yield(name, nrt.definitions[id]) {
				return
			}
		}
	}
}

// Count returns the number of defined names
func (nrt *NamedRangeTable) Count() int {
	return len(nrt.definitions)
}

// Clear removes all named ranges from the table
func (nrt *NamedRangeTable) Clear() {
	nrt.nameToID = make(map[string]uint32)
	nrt.idToName = make(map[uint32]string)
	nrt.definitions = make(map[uint32][]Token)
	nrt.nextID = 1
}
