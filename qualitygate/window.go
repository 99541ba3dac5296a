// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package qualitygate

import "sync"

// window is a bounded ring buffer of samples. Writers overwrite the
// oldest entry once the buffer fills; readers get a copied snapshot.
type window[T any] struct {
	mu   sync.Mutex
	buf  []T
	next int
	full bool
}

func newWindow[T any](size int) *window[T] {
	return &window[T]{buf: make([]T, size)}
}

func (w *window[T]) add(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf[w.next] = v
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
}

// snapshot returns the window contents oldest-first.
func (w *window[T]) snapshot() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.full {
		out := make([]T, w.next)
		copy(out, w.buf[:w.next])
		return out
	}
	out := make([]T, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	out = append(out, w.buf[:w.next]...)
	return out
}
