package rollbuf

// IndexOf returns the logical index of the first occurrence of v in
// insertion order, or NotFound.
func IndexOf[T comparable](b *Buffer[T], v T) int {
	return b.IndexFunc(func(x T) bool { return x == v })
}

// Contains reports whether v is stored in b.
func Contains[T comparable](b *Buffer[T], v T) bool {
	return IndexOf(b, v) != NotFound
}
