package scheduling

import (
	"sort"
	"sync"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
)

// Entry is one indexed window on a resource.
type Entry struct {
	ReservationID uuid.UUID
	Window        models.TimeWindow
}

// Index answers overlap queries over the active windows of each resource.
// Implementations must be safe for concurrent use.
type Index interface {
	// Query returns all windows for resourceID overlapping window, excluding
	// the reservation excludeID when non-nil (used when re-checking an edit).
	Query(resourceID uuid.UUID, window models.TimeWindow, excludeID *uuid.UUID) []Entry
	Insert(resourceID, reservationID uuid.UUID, window models.TimeWindow)
	Remove(reservationID uuid.UUID)
}

// SortedIndex keeps per-resource entries ordered by window start, giving
// O(log n + k) range queries via binary search. A resource may hold thousands
// of historical windows, so a full scan per query is avoided.
type SortedIndex struct {
	mu         sync.RWMutex
	byResource map[uuid.UUID][]Entry
	owners     map[uuid.UUID]uuid.UUID // reservation -> resource
}

// NewSortedIndex creates an empty index.
func NewSortedIndex() *SortedIndex {
	return &SortedIndex{
		byResource: make(map[uuid.UUID][]Entry),
		owners:     make(map[uuid.UUID]uuid.UUID),
	}
}

// Query returns overlapping entries in ascending start order.
func (idx *SortedIndex) Query(resourceID uuid.UUID, window models.TimeWindow, excludeID *uuid.UUID) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.byResource[resourceID]
	if len(entries) == 0 {
		return nil
	}

	// Overlap candidates are all entries starting before window.End; among
	// them, those ending after window.Start overlap under [start, end).
	limit := sort.Search(len(entries), func(i int) bool {
		return !entries[i].Window.Start.Before(window.End)
	})

	var out []Entry
	for i := 0; i < limit; i++ {
		e := entries[i]
		if excludeID != nil && e.ReservationID == *excludeID {
			continue
		}
		if e.Window.End.After(window.Start) {
			out = append(out, e)
		}
	}
	return out
}

// Insert adds a window for the given reservation.
func (idx *SortedIndex) Insert(resourceID, reservationID uuid.UUID, window models.TimeWindow) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := idx.byResource[resourceID]
	pos := sort.Search(len(entries), func(i int) bool {
		return entries[i].Window.Start.After(window.Start)
	})

	entries = append(entries, Entry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = Entry{ReservationID: reservationID, Window: window}

	idx.byResource[resourceID] = entries
	idx.owners[reservationID] = resourceID
}

// Remove drops the window owned by reservationID, if present.
func (idx *SortedIndex) Remove(reservationID uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	resourceID, ok := idx.owners[reservationID]
	if !ok {
		return
	}
	delete(idx.owners, reservationID)

	entries := idx.byResource[resourceID]
	for i, e := range entries {
		if e.ReservationID == reservationID {
			idx.byResource[resourceID] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of indexed windows for a resource.
func (idx *SortedIndex) Len(resourceID uuid.UUID) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byResource[resourceID])
}
