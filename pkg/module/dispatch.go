package module

import "fmt"

// Dispatch calls fn on behalf of b if b is natively implemented, or invokes
// tag as a method on b's scripted trampoline (converting args across the
// language boundary and discarding its single return value) if b wraps a
// scripted instance instead — the parallel dispatcher the scripted bridge
// needs: the same call path reaches either a native Go method or a scripted
// method by name, whichever backs b. Either way, a returned or panicking
// error is annotated with b's identification tuple and tag before it
// reaches the caller. Every framework entry point into a module virtual
// should go through Dispatch or DispatchValue rather than calling a native
// method or the trampoline directly.
func Dispatch(b *Base, tag string, fn func() error, args ...any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallError{
				ID:      b.id,
				Key:     b.key,
				Name:    b.info.Name,
				Version: b.info.Version,
				From:    tag,
				Err:     &ModuleExecutionError{Recovered: r},
			}
		}
	}()

	if b.scripted != nil {
		if _, callErr := b.scripted.Call(tag, args...); callErr != nil {
			return &CallError{
				ID:      b.id,
				Key:     b.key,
				Name:    b.info.Name,
				Version: b.info.Version,
				From:    tag,
				Err:     callErr,
			}
		}
		return nil
	}

	if err := fn(); err != nil {
		return &CallError{
			ID:      b.id,
			Key:     b.key,
			Name:    b.info.Name,
			Version: b.info.Version,
			From:    tag,
			Err:     err,
		}
	}
	return nil
}

// DispatchValue is the Dispatch variant for virtuals that return a value
// alongside an error.
func DispatchValue[T any](b *Base, tag string, fn func() (T, error), args ...any) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = &CallError{
				ID:      b.id,
				Key:     b.key,
				Name:    b.info.Name,
				Version: b.info.Version,
				From:    tag,
				Err:     &ModuleExecutionError{Recovered: r},
			}
		}
	}()

	if b.scripted != nil {
		raw, callErr := b.scripted.Call(tag, args...)
		if callErr != nil {
			var zero T
			return zero, &CallError{
				ID:      b.id,
				Key:     b.key,
				Name:    b.info.Name,
				Version: b.info.Version,
				From:    tag,
				Err:     callErr,
			}
		}
		typed, ok := raw.(T)
		if !ok {
			var zero T
			return zero, &CallError{
				ID:      b.id,
				Key:     b.key,
				Name:    b.info.Name,
				Version: b.info.Version,
				From:    tag,
				Err:     fmt.Errorf("scripted %q returned %T, want %T", tag, raw, zero),
			}
		}
		return typed, nil
	}

	v, err := fn()
	if err != nil {
		var zero T
		return zero, &CallError{
			ID:      b.id,
			Key:     b.key,
			Name:    b.info.Name,
			Version: b.info.Version,
			From:    tag,
			Err:     err,
		}
	}
	return v, nil
}
