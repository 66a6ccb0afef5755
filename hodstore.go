package deptsite

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrHodNotFound is returned when no staff entry has the requested id.
var ErrHodNotFound = errors.New("hod not found")

// HodStore persists the staff directory as a single JSON array on disk.
// Every mutation rewrites the whole file.
type HodStore struct {
	path string
	mu   sync.Mutex // serializes Update
}

// NewHodStore returns a store backed by the file at path, creating the parent
// directory and an empty collection if the file does not exist yet.
func NewHodStore(path string) (*HodStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &HodStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *HodStore) Path() string {
	return s.path
}

// Load reads the full collection. A missing or malformed file is an error.
func (s *HodStore) Load() ([]StaffEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read hods: %w", err)
	}
	var hods []StaffEntry
	if err := json.Unmarshal(data, &hods); err != nil {
		return nil, fmt.Errorf("parse hods: %w", err)
	}
	return hods, nil
}

// Save replaces the file with hods. The data goes to a temp file in the same
// directory first and is renamed over the target, so readers never observe
// a partially written array.
func (s *HodStore) Save(hods []StaffEntry) error {
	if hods == nil {
		hods = []StaffEntry{}
	}
	data, err := json.MarshalIndent(hods, "", "    ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".hods-*.json")
	if err != nil {
		return fmt.Errorf("write hods: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write hods: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write hods: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write hods: %w", err)
	}
	return nil
}

// Update runs a load-modify-save cycle while holding the store lock, so two
// admin requests in this process cannot overwrite each other's changes.
// If fn returns an error nothing is written.
func (s *HodStore) Update(fn func([]StaffEntry) ([]StaffEntry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hods, err := s.Load()
	if err != nil {
		return err
	}
	hods, err = fn(hods)
	if err != nil {
		return err
	}
	return s.Save(hods)
}

// Get returns the entry with the given id, or ErrHodNotFound.
func (s *HodStore) Get(id int) (StaffEntry, error) {
	hods, err := s.Load()
	if err != nil {
		return StaffEntry{}, err
	}
	i := findHod(hods, id)
	if i < 0 {
		return StaffEntry{}, ErrHodNotFound
	}
	return hods[i], nil
}

// Create appends h with the next free id and returns the stored entry.
func (s *HodStore) Create(h StaffEntry) (StaffEntry, error) {
	err := s.Update(func(hods []StaffEntry) ([]StaffEntry, error) {
		h.ID = NextHodID(hods)
		return append(hods, h), nil
	})
	if err != nil {
		return StaffEntry{}, err
	}
	return h, nil
}

// Edit applies fn to the entry with the given id and saves the collection.
func (s *HodStore) Edit(id int, fn func(*StaffEntry)) (StaffEntry, error) {
	var edited StaffEntry
	err := s.Update(func(hods []StaffEntry) ([]StaffEntry, error) {
		i := findHod(hods, id)
		if i < 0 {
			return nil, ErrHodNotFound
		}
		fn(&hods[i])
		hods[i].ID = id
		edited = hods[i]
		return hods, nil
	})
	if err != nil {
		return StaffEntry{}, err
	}
	return edited, nil
}

// Delete removes every entry with the given id. Deleting an id that is not
// present rewrites the unchanged collection and is not an error.
func (s *HodStore) Delete(id int) error {
	return s.Update(func(hods []StaffEntry) ([]StaffEntry, error) {
		kept := hods[:0]
		for _, h := range hods {
			if h.ID != id {
				kept = append(kept, h)
			}
		}
		return kept, nil
	})
}

// NextHodID returns max(existing ids)+1, or 1 for an empty collection.
func NextHodID(hods []StaffEntry) int {
	if len(hods) == 0 {
		return 1
	}
	highest := hods[0].ID
	for _, h := range hods[1:] {
		if h.ID > highest {
			highest = h.ID
		}
	}
	return highest + 1
}

func findHod(hods []StaffEntry, id int) int {
	for i, h := range hods {
		if h.ID == id {
			return i
		}
	}
	return -1
}
