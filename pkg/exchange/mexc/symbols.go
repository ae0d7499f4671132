package mexc

import (
	"maps"
	"slices"
)

// SymbolTable maps normalized symbols to MEXC native symbols and back. A table
// is built once per metadata refresh and then treated as read-only; the feed
// swaps whole tables instead of patching them.
type SymbolTable struct {
	forward map[string]string
	reverse map[string]string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		forward: make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Add maps normalized to native. Re-adding either key replaces the old pair
// so the two directions always stay inverse to each other.
func (t *SymbolTable) Add(normalized, native string) {
	if old, ok := t.forward[normalized]; ok {
		delete(t.reverse, old)
	}
	if old, ok := t.reverse[native]; ok {
		delete(t.forward, old)
	}
	t.forward[normalized] = native
	t.reverse[native] = normalized
}

// Native returns the exchange spelling of a normalized symbol.
func (t *SymbolTable) Native(normalized string) (string, bool) {
	s, ok := t.forward[normalized]
	return s, ok
}

// Normalized returns the canonical spelling of a native symbol.
func (t *SymbolTable) Normalized(native string) (string, bool) {
	s, ok := t.reverse[native]
	return s, ok
}

func (t *SymbolTable) Len() int {
	return len(t.forward)
}

// Symbols returns every normalized symbol in sorted order.
func (t *SymbolTable) Symbols() []string {
	return slices.Sorted(maps.Keys(t.forward))
}
