// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fqdn implements the FQDN resolver (C7): name<->IPv4 tables with
// wildcard matching, a bounded bitmap code allocator, two-phase delete, and
// the in-memory IP->FQDN reverse-lookup sidecar fed by DPI-observed SNI/Host
// headers.
package fqdn

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/segmentic/dpengine/internal/errors"
)

// MaxEntries bounds the name table, matching DP_POLICY_FQDN_MAX_ENTRIES.
const MaxEntries = 2048

// NameMaxLen bounds one FQDN string, matching DP_POLICY_FQDN_NAME_MAX_LEN.
const NameMaxLen = 256

// ReverseEntryTimeout is how long an IP->FQDN reverse sidecar entry stays
// valid without being refreshed, matching IP_FQDN_STORAGE_ENTRY_TIMEOUT.
const ReverseEntryTimeout = 1800 * time.Second

// deleteQueueLen batches pending deletes before they're actually freed,
// matching the source's DELETE_QLEN two-phase delete batching.
const deleteQueueLen = 64

// codeAllocator hands out bounded integer codes backed by a bitmap, used so
// FQDN entries can be referenced by a compact integer code in hot-path policy
// caches instead of a string compare.
type codeAllocator struct {
	mu   sync.Mutex
	used [MaxEntries]bool
	next int
}

func (a *codeAllocator) alloc() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < MaxEntries; i++ {
		idx := (a.next + i) % MaxEntries
		if !a.used[idx] {
			a.used[idx] = true
			a.next = (idx + 1) % MaxEntries
			return idx, true
		}
	}
	return 0, false
}

func (a *codeAllocator) free(code int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used[code] = false
}

// entry is one registered FQDN mapping.
type entry struct {
	code      int
	name      string
	ips       map[string]net.IP
	vh        bool
	markedDel bool
}

// Resolver holds the name<->IP tables and the reverse sidecar.
type Resolver struct {
	mu      sync.RWMutex
	byName  map[string]*entry
	byCode  map[int]*entry
	codes   codeAllocator
	pending []int // mark_delete queue, drained by DeleteMarked

	reverseMu sync.RWMutex
	reverse   map[string]reverseEntry // ip -> fqdn
}

type reverseEntry struct {
	name     string
	expireAt time.Time
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		byName:  make(map[string]*entry),
		byCode:  make(map[int]*entry),
		reverse: make(map[string]reverseEntry),
	}
}

// Register adds or updates a name->IP mapping, allocating a bitmap code for
// new names. Returns an error if the table is full or the name is too long.
func (r *Resolver) Register(name string, ips []net.IP, vh bool) error {
	if len(name) == 0 || len(name) > NameMaxLen {
		return errors.Errorf(errors.KindValidation, "fqdn: invalid name length %d", len(name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[name]
	if !ok {
		code, ok := r.codes.alloc()
		if !ok {
			return errors.Errorf(errors.KindUnavailable, "fqdn: table full (max %d entries)", MaxEntries)
		}
		e = &entry{code: code, name: name, ips: make(map[string]net.IP)}
		r.byName[name] = e
		r.byCode[code] = e
	}
	e.vh = vh
	e.markedDel = false
	for _, ip := range ips {
		e.ips[ip.String()] = ip
	}
	return nil
}

// Unregister marks a name for deletion (phase one of the two-phase delete).
// The entry stays resolvable until DeleteMarked actually frees it, so
// in-flight lookups that already read the entry don't race a reused code.
func (r *Resolver) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	if !ok || e.markedDel {
		return
	}
	e.markedDel = true
	r.pending = append(r.pending, e.code)
	if len(r.pending) >= deleteQueueLen {
		r.deleteMarkedLocked()
	}
}

// DeleteMarked flushes the pending delete queue regardless of its current
// length, freeing every marked entry's code and removing it from both
// tables. Called from the periodic control-plane sweep.
func (r *Resolver) DeleteMarked() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteMarkedLocked()
}

func (r *Resolver) deleteMarkedLocked() {
	for _, code := range r.pending {
		e, ok := r.byCode[code]
		if !ok {
			continue
		}
		delete(r.byCode, code)
		delete(r.byName, e.name)
		r.codes.free(code)
	}
	r.pending = r.pending[:0]
}

// Lookup resolves a name to its registered IPs. Wildcard names
// ("*.example.com") match any subdomain.
func (r *Resolver) Lookup(name string) ([]net.IP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byName[name]; ok {
		return ipList(e.ips), true
	}
	for pattern, e := range r.byName {
		if isWildcard(pattern) && wildcardMatches(pattern, name) {
			return ipList(e.ips), true
		}
	}
	return nil, false
}

// ResolveReverse performs the policy-side reverse check: does the observed
// destination IP belong to any registered name matching pattern?
func (r *Resolver) ResolveReverse(pattern string, ip net.IP) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, e := range r.byName {
		if !matchesPattern(pattern, name) {
			continue
		}
		if _, ok := e.ips[ip.String()]; ok {
			return true
		}
	}
	return false
}

func isWildcard(pattern string) bool { return strings.HasPrefix(pattern, "*.") }

func wildcardMatches(pattern, name string) bool {
	suffix := pattern[1:] // ".example.com"
	return len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

func matchesPattern(pattern, name string) bool {
	if pattern == name {
		return true
	}
	return isWildcard(pattern) && wildcardMatches(pattern, name)
}

func ipList(m map[string]net.IP) []net.IP {
	out := make([]net.IP, 0, len(m))
	for _, ip := range m {
		out = append(out, ip)
	}
	return out
}

// RecordReverse feeds one DPI-observed (IP, name) association — e.g. from a
// TLS SNI or HTTP Host header — into the reverse sidecar, refreshing its
// expiry.
func (r *Resolver) RecordReverse(ip net.IP, name string, now time.Time) {
	r.reverseMu.Lock()
	defer r.reverseMu.Unlock()
	r.reverse[ip.String()] = reverseEntry{name: name, expireAt: now.Add(ReverseEntryTimeout)}
}

// LookupReverse returns the most recently observed name for an IP, if its
// sidecar entry hasn't expired.
func (r *Resolver) LookupReverse(ip net.IP, now time.Time) (string, bool) {
	r.reverseMu.RLock()
	defer r.reverseMu.RUnlock()
	e, ok := r.reverse[ip.String()]
	if !ok || now.After(e.expireAt) {
		return "", false
	}
	return e.name, true
}

// SweepReverse evicts expired reverse sidecar entries and returns how many
// it removed. It is not scheduled on the timer wheel; expired entries are
// also ignored by LookupReverse.
func (r *Resolver) SweepReverse(now time.Time) int {
	r.reverseMu.Lock()
	defer r.reverseMu.Unlock()
	evicted := 0
	for ip, e := range r.reverse {
		if now.After(e.expireAt) {
			delete(r.reverse, ip)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of name entries in the table, including entries
// marked for deletion that DeleteMarked has not yet freed.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
