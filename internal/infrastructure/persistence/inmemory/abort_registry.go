package inmemory

import "sync"

type abortFlag struct {
	aborted bool
	done    chan struct{}
}

// AbortRegistry maps checkout ids to abort requests. Entries abandoned by
// Retarget are kept so a late lookup of the old id never re-creates it.
type AbortRegistry struct {
	mu    sync.Mutex
	flags map[string]*abortFlag
}

func NewAbortRegistry() *AbortRegistry {
	return &AbortRegistry{
		flags: make(map[string]*abortFlag),
	}
}

func (r *AbortRegistry) Register(checkoutID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flags[checkoutID] = &abortFlag{done: make(chan struct{})}
}

func (r *AbortRegistry) RequestAbort(checkoutID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flags[checkoutID]
	if !ok {
		return false
	}
	if !f.aborted {
		f.aborted = true
		close(f.done)
	}
	return true
}

func (r *AbortRegistry) IsAborted(checkoutID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flags[checkoutID]
	return ok && f.aborted
}

// Retarget hands ownership from oldID to newID, which starts un-aborted.
// It reports whether oldID had been aborted before the hand-over.
func (r *AbortRegistry) Retarget(oldID, newID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flags[newID] = &abortFlag{done: make(chan struct{})}

	old, ok := r.flags[oldID]
	return ok && old.aborted
}

func (r *AbortRegistry) Prune(checkoutID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flags, checkoutID)
}

// Done returns a channel closed once checkoutID is aborted, or nil if the
// id is not registered.
func (r *AbortRegistry) Done(checkoutID string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flags[checkoutID]
	if !ok {
		return nil
	}
	return f.done
}

func (r *AbortRegistry) Contains(checkoutID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.flags[checkoutID]
	return ok
}
