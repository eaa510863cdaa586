package utils

func Ptr[T any](v T) *T {
	return &v
}

func Val[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
