package clmm

import (
	"sync"

	"github.com/google/uuid"
)

// operationClass distinguishes the guard's two acquisition rules: at
// most one non-swap operation in flight per principal, versus multiple
// concurrent swaps per principal as long as they carry distinct sequence
// numbers and don't touch overlapping pools.
type operationClass int

const (
	classNonSwap operationClass = iota
	classSwap
)

// PrincipalGuard is the process-wide per-caller mutual-exclusion set.
// It never blocks a goroutine: every acquisition attempt either succeeds
// immediately or returns ErrLockedPrincipal (a "lock" here is a
// request-admission check, not a blocking mutex, fitting a
// single-threaded cooperative request loop).
type PrincipalGuard struct {
	mu         sync.Mutex
	nonSwap    map[Principal]bool
	swaps      map[Principal]map[string]bool // principal -> set of sequence ids in flight
	poolClaims map[PoolId]string             // pool -> sequence id holding it
	seqCounter uint64
}

func NewPrincipalGuard() *PrincipalGuard {
	return &PrincipalGuard{
		nonSwap:    make(map[Principal]bool),
		swaps:      make(map[Principal]map[string]bool),
		poolClaims: make(map[PoolId]string),
	}
}

// Lease is a scoped acquisition: Release is safe to call multiple times
// and MUST be deferred immediately after a successful Acquire, so it runs
// on every exit path including a panic unwinding through the caller.
type Lease struct {
	guard    *PrincipalGuard
	owner    Principal
	class    operationClass
	seq      string
	pools    []PoolId
	released bool
}

func (l *Lease) Release() {
	if l == nil || l.released {
		return
	}
	l.released = true
	l.guard.release(l)
}

// AcquireNonSwap admits a validation/position/balance request for a
// principal, refusing if ANY request (swap or non-swap) for that
// principal is already in flight.
func (g *PrincipalGuard) AcquireNonSwap(owner Principal) (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nonSwap[owner] {
		return nil, ErrLockedPrincipal
	}
	if swaps, ok := g.swaps[owner]; ok && len(swaps) > 0 {
		return nil, ErrLockedPrincipal
	}
	g.nonSwap[owner] = true
	return &Lease{guard: g, owner: owner, class: classNonSwap}, nil
}

// AcquireSwap admits a swap request for a principal, permitting
// concurrent swaps for the same principal provided they carry distinct
// sequence numbers (assigned here) and don't claim an overlapping pool
// set. A non-swap request in flight for the same principal still
// excludes it.
func (g *PrincipalGuard) AcquireSwap(owner Principal, pools []PoolId) (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nonSwap[owner] {
		return nil, ErrLockedPrincipal
	}
	for _, p := range pools {
		if _, claimed := g.poolClaims[p]; claimed {
			return nil, ErrLockedPrincipal
		}
	}

	g.seqCounter++
	seq := uuid.New().String()
	if g.swaps[owner] == nil {
		g.swaps[owner] = make(map[string]bool)
	}
	g.swaps[owner][seq] = true
	for _, p := range pools {
		g.poolClaims[p] = seq
	}
	return &Lease{guard: g, owner: owner, class: classSwap, seq: seq, pools: pools}, nil
}

func (g *PrincipalGuard) release(l *Lease) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch l.class {
	case classNonSwap:
		delete(g.nonSwap, l.owner)
	case classSwap:
		if swaps, ok := g.swaps[l.owner]; ok {
			delete(swaps, l.seq)
			if len(swaps) == 0 {
				delete(g.swaps, l.owner)
			}
		}
		for _, p := range l.pools {
			if g.poolClaims[p] == l.seq {
				delete(g.poolClaims, p)
			}
		}
	}
}
