package vm

// Weak containers hold references without reporting them as strong during
// tracing. After marking completes and before the sweep, the collector
// calls ProcessWeakRefs and the runtime fixes the containers up against the
// heap's liveness predicate: dead referents are cleared, entries with dead
// keys are dropped, and finalization callbacks are scheduled to run after
// the cycle.

import "github.com/mirin-js/gc"

type weakMapEntry struct {
	key gc.Ptr[Object]
	val gc.Ptr[Object]
}

// NewWeakRef allocates a weak reference to target.
func (r *Runtime) NewWeakRef(target gc.Ptr[Object]) (gc.Ptr[WeakRef], error) {
	p, err := gc.Allocate[WeakRef](r.Heap, r, KindWeakRef)
	if err != nil {
		return gc.Ptr[WeakRef]{}, err
	}
	gc.WriteBarrierPtr(r.Heap, target)
	p.Get().Target = target
	r.weakRefs = append(r.weakRefs, p)
	return p, nil
}

// WeakRefTarget returns the referent, or the nil reference if it has been
// collected.
func (r *Runtime) WeakRefTarget(w gc.Ptr[WeakRef]) gc.Ptr[Object] {
	return w.Get().Target
}

// NewWeakMap allocates an empty weak map.
func (r *Runtime) NewWeakMap() (gc.Ptr[WeakMap], error) {
	p, err := gc.Allocate[WeakMap](r.Heap, r, KindWeakMap)
	if err != nil {
		return gc.Ptr[WeakMap]{}, err
	}
	r.weakMaps[p.Raw()] = nil
	return p, nil
}

// WeakMapSet stores key -> val. The key is held weakly, the value strongly
// for as long as the map and the key are alive.
func (r *Runtime) WeakMapSet(m gc.Ptr[WeakMap], key, val gc.Ptr[Object]) {
	// The value is a strong edge out of a possibly-black container.
	gc.WriteBarrierPtr(r.Heap, val)
	entries := r.weakMaps[m.Raw()]
	for i := range entries {
		if entries[i].key.Equal(key) {
			entries[i].val = val
			return
		}
	}
	r.weakMaps[m.Raw()] = append(entries, weakMapEntry{key: key, val: val})
}

// WeakMapGet looks up key.
func (r *Runtime) WeakMapGet(m gc.Ptr[WeakMap], key gc.Ptr[Object]) (gc.Ptr[Object], bool) {
	for _, e := range r.weakMaps[m.Raw()] {
		if e.key.Equal(key) {
			return e.val, true
		}
	}
	return gc.Ptr[Object]{}, false
}

// WeakMapLen returns the number of live entries.
func (r *Runtime) WeakMapLen(m gc.Ptr[WeakMap]) int {
	return len(r.weakMaps[m.Raw()])
}

// NewWeakSet allocates an empty weak set.
func (r *Runtime) NewWeakSet() (gc.Ptr[WeakSet], error) {
	p, err := gc.Allocate[WeakSet](r.Heap, r, KindWeakSet)
	if err != nil {
		return gc.Ptr[WeakSet]{}, err
	}
	r.weakSets[p.Raw()] = nil
	return p, nil
}

// WeakSetAdd inserts a member; membership does not keep it alive.
func (r *Runtime) WeakSetAdd(s gc.Ptr[WeakSet], member gc.Ptr[Object]) {
	for _, m := range r.weakSets[s.Raw()] {
		if m.Equal(member) {
			return
		}
	}
	r.weakSets[s.Raw()] = append(r.weakSets[s.Raw()], member)
}

// WeakSetHas reports membership.
func (r *Runtime) WeakSetHas(s gc.Ptr[WeakSet], member gc.Ptr[Object]) bool {
	for _, m := range r.weakSets[s.Raw()] {
		if m.Equal(member) {
			return true
		}
	}
	return false
}

// FinalizationRegistry schedules a callback when a registered target is
// reclaimed. Registrations are weak: the registry keeps neither target nor
// callback ordering guarantees, only exactly-once delivery per reclaimed
// registration.
type FinalizationRegistry struct {
	rt      *Runtime
	entries []finalizerEntry
	nextTok int
}

type finalizerEntry struct {
	target gc.Ptr[Object]
	fn     func()
	token  int
}

// NewFinalizationRegistry creates a registry attached to this runtime.
func (r *Runtime) NewFinalizationRegistry() *FinalizationRegistry {
	reg := &FinalizationRegistry{rt: r}
	r.registries = append(r.registries, reg)
	return reg
}

// Register schedules fn to run after the cycle in which target is
// reclaimed. It returns a token for Unregister.
func (reg *FinalizationRegistry) Register(target gc.Ptr[Object], fn func()) int {
	reg.nextTok++
	reg.entries = append(reg.entries, finalizerEntry{
		target: target,
		fn:     fn,
		token:  reg.nextTok,
	})
	return reg.nextTok
}

// Unregister removes a registration before it fires. It reports whether the
// token was still registered.
func (reg *FinalizationRegistry) Unregister(token int) bool {
	for i := range reg.entries {
		if reg.entries[i].token == token {
			reg.entries = append(reg.entries[:i], reg.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of pending registrations.
func (reg *FinalizationRegistry) Len() int {
	return len(reg.entries)
}

// ProcessWeakRefs implements gc.Context. It runs with marking complete and
// the sweep not yet started, so IsAlive answers are authoritative for this
// cycle.
func (r *Runtime) ProcessWeakRefs(h *gc.Heap) {
	// WeakRef cells: drop bookkeeping for dying cells, clear dead targets in
	// surviving ones.
	kept := r.weakRefs[:0]
	for _, w := range r.weakRefs {
		if !gc.Alive(h, w) {
			continue
		}
		if t := w.Get().Target; !t.IsNil() && !gc.Alive(h, t) {
			w.Get().Target = gc.Ptr[Object]{}
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(r.weakRefs); i++ {
		r.weakRefs[i] = gc.Ptr[WeakRef]{}
	}
	r.weakRefs = kept

	// Weak maps: drop tables of dying maps, then entries whose key died.
	for mp, entries := range r.weakMaps {
		if !h.IsAlive(mp) {
			delete(r.weakMaps, mp)
			continue
		}
		live := entries[:0]
		for _, e := range entries {
			if gc.Alive(h, e.key) {
				live = append(live, e)
			}
		}
		r.weakMaps[mp] = live
	}

	// Weak sets: same, minus values.
	for sp, members := range r.weakSets {
		if !h.IsAlive(sp) {
			delete(r.weakSets, sp)
			continue
		}
		live := members[:0]
		for _, m := range members {
			if gc.Alive(h, m) {
				live = append(live, m)
			}
		}
		r.weakSets[sp] = live
	}

	// Finalization registries: move registrations with dead targets to the
	// pending list; they run via RunFinalizers after the cycle.
	for _, reg := range r.registries {
		live := reg.entries[:0]
		for _, e := range reg.entries {
			if gc.Alive(h, e.target) {
				live = append(live, e)
			} else {
				r.pending = append(r.pending, e.fn)
			}
		}
		reg.entries = live
	}
}
