package receiver

import (
	"io"
	"sync"

	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/remi"
)

// ClassHandlers are the user-supplied callbacks invoked around a migration
// for one migration class, the Go analog of the before/after function
// pointers the original library accepts alongside user-owned state and a
// destructor.
type ClassHandlers struct {
	// Before runs once the incoming fileset has been fully described (after
	// START, before any data has arrived). A non-zero return aborts the
	// migration with remi.ErrUser.
	Before func(fs *fileset.Fileset) int32
	// After runs once all data has landed successfully (at END, before the
	// response is sent). Its return value is surfaced to the sender as
	// EndResponse.UserStatus.
	After func(fs *fileset.Fileset) int32
	// UserData is owned by the caller; it is closed when the class is
	// deregistered, mirroring the original library's per-class destructor.
	UserData io.Closer
}

type classKey struct {
	class      string
	providerID uint16
}

// classRegistry maps (class, providerID) pairs to the handlers that accept
// migrations for them, as described in spec §4.1's migration class
// registration.
type classRegistry struct {
	mu      sync.RWMutex
	classes map[classKey]ClassHandlers
}

func newClassRegistry() *classRegistry {
	return &classRegistry{classes: make(map[classKey]ClassHandlers)}
}

// Register adds handlers for (class, providerID). It returns
// remi.ErrClassExists if the pair is already registered.
func (r *classRegistry) Register(class string, providerID uint16, h ClassHandlers) error {
	if class == "" {
		return remi.ErrInvalidArg
	}
	key := classKey{class, providerID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.classes[key]; exists {
		return remi.ErrClassExists
	}
	r.classes[key] = h
	return nil
}

// Deregister removes the handlers for (class, providerID) and closes their
// UserData, if any.
func (r *classRegistry) Deregister(class string, providerID uint16) error {
	key := classKey{class, providerID}
	r.mu.Lock()
	h, ok := r.classes[key]
	if ok {
		delete(r.classes, key)
	}
	r.mu.Unlock()
	if !ok {
		return remi.ErrUnknownClass
	}
	if h.UserData != nil {
		return asIOErr(h.UserData.Close())
	}
	return nil
}

// lookup finds the handlers for (class, providerID), falling back to a
// wildcard registration under remi.AnyProviderID when no exact provider
// match exists. A providerID of remi.AnyProviderID matches a registration
// of class under any provider id; when there are several, the one with the
// lowest provider id is used.
func (r *classRegistry) lookup(class string, providerID uint16) (ClassHandlers, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.classes[classKey{class, providerID}]; ok {
		return h, true
	}
	if providerID != remi.AnyProviderID {
		if h, ok := r.classes[classKey{class, remi.AnyProviderID}]; ok {
			return h, true
		}
		return ClassHandlers{}, false
	}
	var best ClassHandlers
	var bestID uint16
	found := false
	for k, h := range r.classes {
		if k.class == class && (!found || k.providerID < bestID) {
			best, bestID, found = h, k.providerID, true
		}
	}
	return best, found
}

// destroyAll removes every registered class, closing each one's UserData,
// as the original library does for every remaining registration at
// receiver shutdown.
func (r *classRegistry) destroyAll() {
	r.mu.Lock()
	handlers := make([]ClassHandlers, 0, len(r.classes))
	for _, h := range r.classes {
		handlers = append(handlers, h)
	}
	r.classes = make(map[classKey]ClassHandlers)
	r.mu.Unlock()
	for _, h := range handlers {
		if h.UserData != nil {
			h.UserData.Close()
		}
	}
}

func asIOErr(err error) error {
	if err == nil {
		return nil
	}
	return remi.ErrIO
}

// operationTable is the per-OpID state map guarding in-flight migrations, in
// the spirit of the host package's per-obligation lock table: a
// table-level mutex guards membership, while a per-operation mutex and
// WaitGroup guard the fields of any one migration.
type operationTable struct {
	mu   sync.Mutex
	ops  map[remi.OpID]*operation
}

func newOperationTable() *operationTable {
	return &operationTable{ops: make(map[remi.OpID]*operation)}
}

func (t *operationTable) insert(op *operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops[op.id] = op
}

func (t *operationTable) get(id remi.OpID) (*operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	return op, ok
}

func (t *operationTable) remove(id remi.OpID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ops, id)
}
