package domain

// Opt is a field in a partial update. The zero value means "leave unchanged";
// Set writes a value and Clear writes null.
type Opt[T any] struct {
	set  bool
	null bool
	v    T
}

func Set[T any](v T) Opt[T] { return Opt[T]{set: true, v: v} }

func Clear[T any]() Opt[T] { return Opt[T]{set: true, null: true} }

// SetPtr maps nil to Clear and non-nil to Set.
func SetPtr[T any](v *T) Opt[T] {
	if v == nil {
		return Clear[T]()
	}
	return Set(*v)
}

func (o Opt[T]) IsSet() bool  { return o.set }
func (o Opt[T]) IsNull() bool { return o.set && o.null }

// Value returns the value and true when the field is set to a non-null value.
func (o Opt[T]) Value() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.v, true
}

// Ptr returns nil for null, a pointer to the value otherwise. Only meaningful when IsSet.
func (o Opt[T]) Ptr() *T {
	if v, ok := o.Value(); ok {
		return &v
	}
	return nil
}
