package roster

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownShip   = errors.New("unknown ship")
	ErrDuplicateShip = errors.New("duplicate ship")
)

// Handle addresses one arena slot. The lower 32 bits are the slot index and
// the upper 32 bits its generation; the generation bumps when the slot is
// released so stale handles stop resolving.
type Handle uint64

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

type slot struct {
	generation uint32
	ship       *Ship
}

// Roster is the live set of ships in a battle, stored in a generational arena
// and indexed by identity. One identity is designated as the local player's.
// Accessed only from the frame loop.
type Roster struct {
	slots    []slot
	freeList []uint32
	byID     map[ShipID]Handle
	playerID ShipID
}

func New(playerID ShipID) *Roster {
	return &Roster{
		slots:    make([]slot, 0, 16),
		freeList: make([]uint32, 0, 8),
		byID:     make(map[ShipID]Handle, 16),
		playerID: playerID,
	}
}

func (r *Roster) alloc(s *Ship) Handle {
	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.slots[idx].ship = s
		return newHandle(idx, r.slots[idx].generation)
	}
	r.slots = append(r.slots, slot{ship: s})
	return newHandle(uint32(len(r.slots)-1), 0)
}

func (r *Roster) release(h Handle) {
	idx := h.Index()
	r.slots[idx].ship = nil
	r.slots[idx].generation++
	r.freeList = append(r.freeList, idx)
}

// Insert adds a ship under a new identity.
func (r *Roster) Insert(s *Ship) (Handle, error) {
	if _, ok := r.byID[s.ID]; ok {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateShip, s.ID)
	}
	h := r.alloc(s)
	r.byID[s.ID] = h
	return h, nil
}

// Replace points an existing identity at a new ship. The old entry's slot is
// released, so handles to it no longer resolve.
func (r *Roster) Replace(s *Ship) (Handle, error) {
	old, ok := r.byID[s.ID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownShip, s.ID)
	}
	h := r.alloc(s)
	r.byID[s.ID] = h
	r.release(old)
	return h, nil
}

// Remove deletes a ship by identity and returns it.
func (r *Roster) Remove(id ShipID) (*Ship, error) {
	h, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShip, id)
	}
	s := r.slots[h.Index()].ship
	delete(r.byID, id)
	r.release(h)
	return s, nil
}

// Get resolves a handle. Stale handles return false.
func (r *Roster) Get(h Handle) (*Ship, bool) {
	idx := h.Index()
	if int(idx) >= len(r.slots) {
		return nil, false
	}
	sl := r.slots[idx]
	if sl.generation != h.Generation() || sl.ship == nil {
		return nil, false
	}
	return sl.ship, true
}

// Handle returns the current handle for an identity.
func (r *Roster) Handle(id ShipID) (Handle, bool) {
	h, ok := r.byID[id]
	return h, ok
}

// Lookup returns the ship currently registered under id.
func (r *Roster) Lookup(id ShipID) (*Ship, bool) {
	h, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.Get(h)
}

func (r *Roster) PlayerID() ShipID { return r.playerID }

// Player returns the local player's current ship, if it is in the roster.
func (r *Roster) Player() (*Ship, bool) {
	return r.Lookup(r.playerID)
}

// IsPlayer reports whether s is the ship the player designation points to.
func (r *Roster) IsPlayer(s *Ship) bool {
	p, ok := r.Player()
	return ok && p == s
}

// IDs returns all identities in ascending order.
func (r *Roster) IDs() []ShipID {
	ids := make([]ShipID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits every ship in ascending identity order so replay stays deterministic.
func (r *Roster) Each(fn func(*Ship)) {
	for _, id := range r.IDs() {
		s, _ := r.Lookup(id)
		fn(s)
	}
}

func (r *Roster) Len() int {
	return len(r.byID)
}
