package common

// Coalesce returns the first argument that is not the zero value of T. It is how CLI flags override config
// file values, which in turn override defaults: Coalesce(flag, file, fallback).
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// ValueOr dereferences p, or returns fallback when p is nil. Optional settings whose zero value is
// meaningful, such as a blend weight of 0, are decoded into pointers and read through ValueOr.
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
