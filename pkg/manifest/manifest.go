// Package manifest declares the multicast streams an application exchanges over the
// deterministic network and validates them as a whole before any transport sees them.
//
// A Table only exists in its validated form: Build either returns a complete table
// or an error, and a built table is never mutated. Every accessor hands out copies,
// so a *Table may be shared by any number of goroutines without locking.
package manifest

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/danmuck/tsnmanifest/pkg/protocol/layout"
	"github.com/rs/zerolog/log"
)

// Descriptor declares one stream.
type Descriptor struct {
	Name        string
	StreamID    uint64
	Dst         Addr
	Class       TrafficClass
	Kind        layout.Kind
	PayloadSize int
	Freq        int
}

// Period is the publish interval at Freq.
func (d Descriptor) Period() time.Duration {
	if d.Freq <= 0 {
		return 0
	}
	return time.Second / time.Duration(d.Freq)
}

// Bandwidth is the payload byte rate of the stream, excluding framing.
func (d Descriptor) Bandwidth() int {
	return d.PayloadSize * d.Freq
}

// Table is a validated, immutable stream manifest.
type Table struct {
	entries []Descriptor
	byName  map[string]int
	byID    map[uint64]int
	policy  AddressPolicy
}

type buildOptions struct {
	policy AddressPolicy
}

// Option customizes Build.
type Option func(*buildOptions)

// WithAddressPolicy restricts the destination ranges accepted by Build.
func WithAddressPolicy(p AddressPolicy) Option {
	return func(o *buildOptions) {
		o.policy = p
	}
}

// Build validates entries and returns the table, or the first *ValidationError found.
// Duplicate stream ids are reported before duplicate names, and both before any
// per-entry check; per-entry checks run in declaration order.
func Build(entries []Descriptor, opts ...Option) (*Table, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	byID := make(map[uint64]int, len(entries))
	for i, d := range entries {
		if prev, ok := byID[d.StreamID]; ok {
			return nil, reject(i, d, &ValidationError{
				Err:    ErrDuplicateStreamID,
				Reason: fmt.Sprintf("already used by entry %d %q", prev, entries[prev].Name),
			})
		}
		byID[d.StreamID] = i
	}
	byName := make(map[string]int, len(entries))
	for i, d := range entries {
		if prev, ok := byName[d.Name]; ok {
			return nil, reject(i, d, &ValidationError{
				Err:    ErrDuplicateName,
				Reason: fmt.Sprintf("already used by entry %d", prev),
			})
		}
		byName[d.Name] = i
	}
	for i, d := range entries {
		if err := validateEntry(d, o.policy); err != nil {
			return nil, reject(i, d, err)
		}
	}

	t := &Table{
		entries: slices.Clone(entries),
		byName:  byName,
		byID:    byID,
		policy:  o.policy,
	}
	log.Debug().Int("streams", len(t.entries)).Str("address_policy", o.policy.String()).Msg("manifest.Build ok")
	return t, nil
}

func validateEntry(d Descriptor, policy AddressPolicy) *ValidationError {
	if d.Freq <= 0 {
		return &ValidationError{Err: ErrInvalidFrequency, Reason: fmt.Sprintf("freq=%d", d.Freq)}
	}
	if !d.Dst.IsMulticast() || !policy.allows(d.Dst) {
		return &ValidationError{
			Err:    ErrInvalidMulticastAddress,
			Reason: fmt.Sprintf("dst=%s policy=%s", d.Dst, policy),
		}
	}
	if !d.Class.Valid() {
		return &ValidationError{Err: ErrInvalidTrafficClass, Reason: fmt.Sprintf("class=%d", uint8(d.Class))}
	}
	if !d.Kind.Registered() {
		return &ValidationError{Err: ErrUnknownKind, Reason: d.Kind.String()}
	}
	if want := layout.EncodedSize(d.Kind); d.PayloadSize != want {
		return &ValidationError{
			Err:    ErrSizeMismatch,
			Reason: fmt.Sprintf("payload_size=%d %s=%d", d.PayloadSize, d.Kind, want),
		}
	}
	return nil
}

func reject(i int, d Descriptor, e *ValidationError) error {
	e.Index = i
	e.Name = d.Name
	e.StreamID = d.StreamID
	log.Debug().Err(e.Err).Int("entry", i).Str("name", d.Name).Uint64("stream_id", d.StreamID).
		Str("reason", e.Reason).Msg("manifest.Build rejected")
	return e
}

// Lookup returns the stream named name.
func (t *Table) Lookup(name string) (Descriptor, error) {
	i, ok := t.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: name=%q", ErrNotFound, name)
	}
	return t.entries[i], nil
}

// LookupID returns the stream with stream_id id.
func (t *Table) LookupID(id uint64) (Descriptor, error) {
	i, ok := t.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: stream_id=%d", ErrNotFound, id)
	}
	return t.entries[i], nil
}

// All yields the descriptors in declaration order. It can be ranged over repeatedly.
func (t *Table) All() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for _, d := range t.entries {
			if !yield(d) {
				return
			}
		}
	}
}

// Descriptors returns a copy of the descriptors in declaration order.
func (t *Table) Descriptors() []Descriptor {
	return slices.Clone(t.entries)
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Policy is the address policy the table was validated against.
func (t *Table) Policy() AddressPolicy {
	return t.policy
}
