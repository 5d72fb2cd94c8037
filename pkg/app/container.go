package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrValidation classifies invalid container arguments.
	ErrValidation = errors.New("app validation error")
	// ErrConflict classifies duplicate instance registrations.
	ErrConflict = errors.New("app conflict")
)

// Container holds the live singleton instances scheduled methods are bound
// to, keyed by component name.
type Container struct {
	mu        sync.RWMutex
	instances map[string]any
}

// NewContainer creates an empty instance container.
func NewContainer() *Container {
	return &Container{
		instances: map[string]any{},
	}
}

// Register stores the live instance for a component name. Registering the
// same name twice is a conflict.
func (c *Container) Register(name string, instance any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: instance name is required", ErrValidation)
	}
	if instance == nil {
		return fmt.Errorf("%w: instance is required", ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.instances[name]; exists {
		return fmt.Errorf("%w: instance %q is already registered", ErrConflict, name)
	}
	c.instances[name] = instance
	return nil
}

// GetInstance returns the live instance registered under name.
func (c *Container) GetInstance(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instance, ok := c.instances[strings.TrimSpace(name)]
	return instance, ok
}
