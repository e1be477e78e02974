package circular

import (
	"fmt"
	"sync"
)

/*
 * Data structure implementing a circular buffer.
 *
 * Writers (the audio callback) and readers (the frame loop) may live on
 * different goroutines, every access goes through the mutex.
 */
type Buffer[T any] struct {
	mutex   sync.RWMutex
	values  []T
	pointer int
	filled  int
}

/*
 * Add elements to the circular buffer, overwriting the oldest elements.
 *
 * Semantics: First write to buffer, then increment pointer.
 *
 * Pointer points to "oldest" element, or next element to be overwritten.
 */
func (b *Buffer[T]) Enqueue(elems ...T) {
	numElems := len(elems)
	n := len(b.values)

	if n == 0 || numElems == 0 {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	values := b.values

	/*
	 * If there are more elements than fit into the buffer, simply copy
	 * the tail of the element array into the buffer, otherwise perform
	 * circular write operation.
	 */
	if numElems >= n {
		copy(values, elems[numElems-n:])
		b.pointer = 0
		b.filled = n
		return
	}

	ptr := b.pointer
	ptrInc := ptr + numElems

	/*
	 * Check whether the write operation stays within the array bounds.
	 */
	if ptrInc < n {
		copy(values[ptr:ptrInc], elems)
		b.pointer = ptrInc
	} else {
		head := ptrInc - n
		tail := n - ptr
		copy(values[ptr:n], elems[0:tail])
		copy(values[0:head], elems[tail:numElems])
		b.pointer = head
	}

	b.filled += numElems

	if b.filled > n {
		b.filled = n
	}

}

/*
 * Returns the capacity of the buffer.
 */
func (b *Buffer[T]) Length() int {
	return len(b.values)
}

/*
 * Returns how many elements were written since creation or the last reset,
 * saturating at the capacity.
 */
func (b *Buffer[T]) Filled() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.filled
}

/*
 * Retrieve all elements from the circular buffer, oldest first.
 *
 * Slots that were never written hold the zero value and come first.
 */
func (b *Buffer[T]) Retrieve(buf []T) error {
	n := len(b.values)
	m := len(buf)

	/*
	 * Ensure the target buffer is of equal size.
	 */
	if n != m {
		return fmt.Errorf("target buffer has %d elements, source buffer has %d", m, n)
	}

	b.mutex.RLock()
	ptr := b.pointer
	tailSize := n - ptr
	copy(buf[0:tailSize], b.values[ptr:n])
	copy(buf[tailSize:n], b.values[0:ptr])
	b.mutex.RUnlock()
	return nil
}

/*
 * Returns the element n positions after the oldest one.
 */
func (b *Buffer[T]) At(n int) (T, bool) {
	var zero T
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	length := len(b.values)

	if n < 0 || n >= length {
		return zero, false
	}

	index := (b.pointer + n) % length
	return b.values[index], true
}

/*
 * Discard all elements.
 */
func (b *Buffer[T]) Reset() {
	var zero T
	b.mutex.Lock()

	for i := range b.values {
		b.values[i] = zero
	}

	b.pointer = 0
	b.filled = 0
	b.mutex.Unlock()
}

/*
 * Creates a circular buffer of a certain size.
 */
func CreateBuffer[T any](size int) *Buffer[T] {

	if size < 0 {
		size = 0
	}

	return &Buffer[T]{
		values: make([]T, size),
	}
}
