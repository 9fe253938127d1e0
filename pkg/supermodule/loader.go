package supermodule

import "fmt"

// ErrSupermoduleLoad wraps any failure opening or resolving a supermodule.
var ErrSupermoduleLoad = fmt.Errorf("supermodule: load error")

// ErrModuleLoad is raised when a supermodule loaded successfully but does
// not provide a module-class requested at instantiation time.
var ErrModuleLoad = fmt.Errorf("supermodule: module load error")

// Loader opens one kind of supermodule (native shared object, or scripted
// package) and tears it down again. Two loaders may coexist inside one Host;
// selection between them is by the suffix of path.
type Loader interface {
	// Accepts reports whether this loader handles path, by suffix or
	// directory convention.
	Accepts(path string) bool
	// Load opens path and returns its creators table. Called at most once
	// per canonical path by a Host — idempotence across repeated calls is
	// Host's responsibility, not the Loader's.
	Load(path string) (*Creators, error)
	// Close tears down whatever Load opened for path. Errors are logged by
	// the caller and never propagated, to guarantee clean shutdown.
	Close(path string) error
}
