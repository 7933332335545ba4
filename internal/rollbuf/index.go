package rollbuf

// toPhysical maps logical index i to its slot in the backing slice.
func toPhysical(i, head, size int) int {
	if size == 0 {
		return 0
	}
	return (i + head) % size
}

// toLogical is the inverse of toPhysical.
func toLogical(p, head, size int) int {
	if size == 0 {
		return 0
	}
	return (size + p - head) % size
}

// growCapacity returns the next reserved capacity for a backing slice that
// is full at current. It doubles, but never past size since a buffer never
// holds more than size elements.
func growCapacity(current, size int) int {
	return min(max(current*2, current+1), size)
}
