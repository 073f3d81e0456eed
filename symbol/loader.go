package symbol

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/nativecall/fault"
)

// Loader supplies class implementations by name. The value returned for a
// class is the receiver whose exported methods become callable; it is
// usually a pointer to a zero-size struct.
type Loader interface {
	LoadClass(name string) (any, error)
}

// StaticLoader is a Loader backed by an explicit name → implementation map.
// It is safe for concurrent use.
type StaticLoader struct {
	mu      sync.RWMutex
	classes map[string]any
}

// NewStaticLoader creates a loader preloaded with classes.
func NewStaticLoader(classes map[string]any) *StaticLoader {
	l := &StaticLoader{classes: make(map[string]any, len(classes))}
	for name, impl := range classes {
		l.classes[name] = impl
	}
	return l
}

// Define adds or replaces a class. Replacing a class that a registry has
// already registered has no effect on that registry.
func (l *StaticLoader) Define(name string, impl any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.classes[name] = impl
}

// LoadClass implements Loader.
func (l *StaticLoader) LoadClass(name string) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	impl, ok := l.classes[name]
	if !ok || impl == nil {
		return nil, fmt.Errorf("%w: no class named %q", fault.ErrClassResolution, name)
	}
	return impl, nil
}

// Names returns the defined class names in sorted order.
func (l *StaticLoader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.classes))
	for name := range l.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
