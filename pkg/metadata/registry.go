package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrValidation classifies invalid component or record definitions.
	ErrValidation = errors.New("metadata validation error")
	// ErrConflict classifies duplicate component definitions.
	ErrConflict = errors.New("metadata conflict")
	// ErrNotFound classifies lookups against undefined components.
	ErrNotFound = errors.New("metadata not found")
)

func metadataError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}

// Kind distinguishes component lifetimes. Lock metadata is only valid on
// singleton service components; controllers live per request.
type Kind string

const (
	KindService    Kind = "service"
	KindController Kind = "controller"
)

// Component describes one owner type known to the registry. Parent names
// another component whose records are visible to this one.
type Component struct {
	Name   string
	Kind   Kind
	Parent string
}

// Entry is one record returned by a flat key scan.
type Entry struct {
	Component string
	Method    string
	Data      any
}

// Registry stores per-method decoration records keyed by a reserved key
// name. Records accumulate in registration order and are immutable once
// recorded. The registry is written during startup and read-only once jobs
// begin firing.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
	// key -> component -> method -> ordered records
	records map[string]map[string]map[string][]any
}

// NewRegistry creates an empty metadata registry.
func NewRegistry() *Registry {
	return &Registry{
		components: map[string]Component{},
		records:    map[string]map[string]map[string][]any{},
	}
}

// DefineComponent registers a component descriptor. Defining the same name
// twice is a conflict; the parent does not need to be defined yet.
func (r *Registry) DefineComponent(component Component) error {
	name := strings.TrimSpace(component.Name)
	if name == "" {
		return metadataError(ErrValidation, "component name is required")
	}
	if component.Kind != KindService && component.Kind != KindController {
		return metadataError(ErrValidation, fmt.Sprintf("invalid component kind %q", component.Kind))
	}
	if strings.TrimSpace(component.Parent) == name {
		return metadataError(ErrValidation, fmt.Sprintf("component %q cannot be its own parent", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		return metadataError(ErrConflict, fmt.Sprintf("component %q is already defined", name))
	}
	component.Name = name
	component.Parent = strings.TrimSpace(component.Parent)
	r.components[name] = component
	return nil
}

// Component returns the descriptor for a defined component.
func (r *Registry) Component(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	component, ok := r.components[strings.TrimSpace(name)]
	return component, ok
}

// Components returns the names of all defined components in sorted order.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record stores one data record under (key, component, method). Multiple
// records on the same method accumulate in call order.
func (r *Registry) Record(key, component, method string, data any) error {
	key = strings.TrimSpace(key)
	component = strings.TrimSpace(component)
	method = strings.TrimSpace(method)
	if key == "" {
		return metadataError(ErrValidation, "record key is required")
	}
	if method == "" {
		return metadataError(ErrValidation, "record method is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[component]; !ok {
		return metadataError(ErrNotFound, fmt.Sprintf("component %q is not defined", component))
	}

	byComponent, ok := r.records[key]
	if !ok {
		byComponent = map[string]map[string][]any{}
		r.records[key] = byComponent
	}
	byMethod, ok := byComponent[component]
	if !ok {
		byMethod = map[string][]any{}
		byComponent[component] = byMethod
	}
	byMethod[method] = append(byMethod[method], data)
	return nil
}

// ReadAll returns every record stored under key for the component and its
// ancestor chain, as a method -> ordered records mapping. Ancestor records
// come first so a child sees inherited registrations before its own.
func (r *Registry) ReadAll(key, component string) map[string][]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.ancestryLocked(strings.TrimSpace(component))
	result := map[string][]any{}

	byComponent, ok := r.records[strings.TrimSpace(key)]
	if !ok {
		return result
	}
	for _, name := range chain {
		byMethod, ok := byComponent[name]
		if !ok {
			continue
		}
		for method, entries := range byMethod {
			result[method] = append(result[method], entries...)
		}
	}
	return result
}

// ReadKey returns every record stored under key across all components, in
// component/method sorted order.
func (r *Registry) ReadKey(key string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byComponent, ok := r.records[strings.TrimSpace(key)]
	if !ok {
		return nil
	}

	components := make([]string, 0, len(byComponent))
	for name := range byComponent {
		components = append(components, name)
	}
	sort.Strings(components)

	var entries []Entry
	for _, component := range components {
		byMethod := byComponent[component]
		methods := make([]string, 0, len(byMethod))
		for method := range byMethod {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			for _, data := range byMethod[method] {
				entries = append(entries, Entry{Component: component, Method: method, Data: data})
			}
		}
	}
	return entries
}

// ancestryLocked returns the component chain root-first. A cycle in parent
// declarations terminates the walk rather than looping.
func (r *Registry) ancestryLocked(component string) []string {
	var chain []string
	visited := map[string]struct{}{}
	name := component
	for name != "" {
		if _, seen := visited[name]; seen {
			break
		}
		visited[name] = struct{}{}
		chain = append(chain, name)
		descriptor, ok := r.components[name]
		if !ok {
			break
		}
		name = descriptor.Parent
	}
	// reverse so ancestors come first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
