package filter

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrMaskOutOfRange reports a mask bit with no container behind it.
	ErrMaskOutOfRange = errors.New("filter: container mask bit out of range")
	// ErrUnknownContainer reports a container name missing from the sorted name list.
	ErrUnknownContainer = errors.New("filter: unknown container")
)

// Mask is a bit-set over the name-sorted container list: bit i selects the i-th
// container. The zero Mask selects every container.
type Mask struct {
	words []uint64
}

func NewMask(bits ...int) Mask {
	var m Mask
	for _, b := range bits {
		m.Set(b)
	}
	return m
}

// All returns a mask with the first n bits set.
func All(n int) Mask {
	var m Mask
	for i := 0; i < n; i++ {
		m.Set(i)
	}
	return m
}

// MaskOf builds the mask selecting the given names out of sorted.
func MaskOf(sorted []string, selected ...string) (Mask, error) {
	var m Mask
	for _, name := range selected {
		found := false
		for i, candidate := range sorted {
			if candidate == name {
				m.Set(i)
				found = true
			}
		}
		if !found {
			return Mask{}, fmt.Errorf("%w: %s", ErrUnknownContainer, name)
		}
	}
	return m, nil
}

// Set selects bit i. Negative bits are ignored.
func (m *Mask) Set(i int) {
	if i < 0 {
		return
	}
	w := i / 64
	for len(m.words) <= w {
		m.words = append(m.words, 0)
	}
	m.words[w] |= 1 << (uint(i) % 64)
}

func (m Mask) Has(i int) bool {
	if i < 0 || i/64 >= len(m.words) {
		return false
	}
	return m.words[i/64]&(1<<(uint(i)%64)) != 0
}

func (m Mask) Empty() bool {
	for _, w := range m.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Bits lists the set bits in ascending order.
func (m Mask) Bits() []int {
	var out []int
	for wi, w := range m.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi*64+b)
			w &^= 1 << uint(b)
		}
	}
	return out
}

// Resolve returns the selected names. An empty mask selects all of them; a bit
// beyond the list fails with ErrMaskOutOfRange.
func (m Mask) Resolve(sorted []string) ([]string, error) {
	if m.Empty() {
		return append([]string(nil), sorted...), nil
	}
	set := m.Bits()
	out := make([]string, 0, len(set))
	for _, b := range set {
		if b >= len(sorted) {
			return nil, fmt.Errorf("%w: bit %d with %d containers", ErrMaskOutOfRange, b, len(sorted))
		}
		out = append(out, sorted[b])
	}
	return out, nil
}
