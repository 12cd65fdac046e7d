package usage

import (
	"fmt"
	"sync"

	"github.com/albertocavalcante/depview/pkg/binio"
)

// NameTable provides bidirectional mapping between names and int32 ids.
//
// Every owner, member name, class name and primitive descriptor stored in a
// usage is an id from one table, so usage equality and hashing never touch
// strings. Ids are dense and assigned in first-seen order.
type NameTable struct {
	lock    sync.RWMutex
	strToID map[string]int32
	idToStr []string
}

// NewNameTable creates an empty table.
func NewNameTable() *NameTable {
	return &NameTable{
		strToID: make(map[string]int32),
	}
}

// Intern returns the id for name, assigning the next id if name is new.
func (t *NameTable) Intern(name string) int32 {
	t.lock.RLock()
	id, ok := t.strToID[name]
	t.lock.RUnlock()
	if ok {
		return id
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	// Double check.
	if id, ok := t.strToID[name]; ok {
		return id
	}
	id = int32(len(t.idToStr))
	t.idToStr = append(t.idToStr, name)
	t.strToID[name] = id
	return id
}

// Value returns the name for id, or "" if id was never assigned.
func (t *NameTable) Value(id int32) string {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if id < 0 || int(id) >= len(t.idToStr) {
		return ""
	}
	return t.idToStr[id]
}

// Lookup returns the id of name without interning it.
func (t *NameTable) Lookup(name string) (int32, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	id, ok := t.strToID[name]
	return id, ok
}

// Len returns the number of interned names.
func (t *NameTable) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.idToStr)
}

// Write persists the table as a count followed by names in id order.
func (t *NameTable) Write(w *binio.Writer) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	w.Len(len(t.idToStr))
	for _, s := range t.idToStr {
		w.String(s)
	}
}

// ReadNameTable restores a table written by Write. Ids are preserved.
func ReadNameTable(r *binio.Reader) (*NameTable, error) {
	n := r.Len()
	t := NewNameTable()
	for i := 0; i < n && r.Err() == nil; i++ {
		s := r.String()
		if _, dup := t.strToID[s]; dup {
			r.Fail(fmt.Errorf("duplicate name %q at id %d", s, i))
			break
		}
		t.strToID[s] = int32(i)
		t.idToStr = append(t.idToStr, s)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read name table: %w", err)
	}
	return t, nil
}
