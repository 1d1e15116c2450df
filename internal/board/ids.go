package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const pendingPrefix = "pending-"

var pendingSeq atomic.Uint64

// ID identifies a column, task or subtask on the board. A pending ID is a
// local placeholder minted by an optimistic create; it never carries a uuid
// and is never sent to the collaborator.
type ID struct {
	durable uuid.UUID
	local   uint64
}

// DurableID wraps an id assigned by the collaborator.
func DurableID(id uuid.UUID) ID {
	return ID{durable: id}
}

func newPendingID() ID {
	return ID{local: pendingSeq.Add(1)}
}

func (id ID) IsPending() bool {
	return id.local != 0
}

func (id ID) IsZero() bool {
	return id.local == 0 && id.durable == uuid.Nil
}

// UUID returns the durable id, or false for a pending ID.
func (id ID) UUID() (uuid.UUID, bool) {
	if id.IsPending() {
		return uuid.Nil, false
	}
	return id.durable, true
}

func (id ID) String() string {
	if id.IsPending() {
		return pendingPrefix + strconv.FormatUint(id.local, 10)
	}
	return id.durable.String()
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID accepts either a uuid or a pending placeholder as rendered by String.
func ParseID(s string) (ID, error) {
	if rest, ok := strings.CutPrefix(s, pendingPrefix); ok {
		n, err := strconv.ParseUint(rest, 10, 64)
		if err != nil || n == 0 {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
		return ID{local: n}, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}
	return DurableID(u), nil
}

var errAbandoned = errors.New("optimistic create was rolled back")

// registry tracks what became of pending IDs. Entries outlive board
// generations so writes queued before a workflow switch still resolve.
type registry struct {
	mu        sync.Mutex
	confirmed map[uint64]uuid.UUID
	abandoned map[uint64]struct{}
}

func newRegistry() *registry {
	return &registry{
		confirmed: make(map[uint64]uuid.UUID),
		abandoned: make(map[uint64]struct{}),
	}
}

func (r *registry) confirm(id ID, durable uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed[id.local] = durable
}

func (r *registry) abandon(id ID) {
	if !id.IsPending() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned[id.local] = struct{}{}
}

// resolve returns the durable uuid for id. It fails with ErrPendingID while
// the create is still outstanding and with errAbandoned once it was rolled back.
func (r *registry) resolve(id ID) (uuid.UUID, error) {
	if u, ok := id.UUID(); ok {
		return u, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.confirmed[id.local]; ok {
		return u, nil
	}
	if _, ok := r.abandoned[id.local]; ok {
		return uuid.Nil, errAbandoned
	}
	return uuid.Nil, fmt.Errorf("%w: %s", ErrPendingID, id)
}

// canonical maps a confirmed pending ID to its durable form.
func (r *registry) canonical(id ID) ID {
	if !id.IsPending() {
		return id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.confirmed[id.local]; ok {
		return DurableID(u)
	}
	return id
}

// settle maps a pending ID whose create has finished to its durable form. It
// reports false when the create was rolled back.
func (r *registry) settle(id ID) (ID, bool) {
	if !id.IsPending() {
		return id, true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.abandoned[id.local]; ok {
		return ID{}, false
	}
	if u, ok := r.confirmed[id.local]; ok {
		return DurableID(u), true
	}
	return id, true
}
