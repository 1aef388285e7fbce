package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultDriver is used when an endpoint does not name one
const DefaultDriver = "s3"

// DriverConstructor is a function that opens a session for an endpoint
type DriverConstructor func(ctx context.Context, ep Endpoint) (Session, error)

var (
	registryMu     sync.RWMutex
	driverRegistry = make(map[string]DriverConstructor)
)

// RegisterDriver registers a driver constructor
func RegisterDriver(driver string, constructor DriverConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	driverRegistry[driver] = constructor
}

// Drivers returns the registered driver names, sorted
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(driverRegistry))
	for name := range driverRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory creates sessions from endpoints
type Factory struct {
	constructors map[string]DriverConstructor
}

// NewFactory creates a factory backed by the global driver registry
func NewFactory() *Factory {
	return &Factory{}
}

// NewFactoryWith creates a factory that only knows the given constructors.
// Tests use it to plug fake sessions in without touching the global registry.
func NewFactoryWith(constructors map[string]DriverConstructor) *Factory {
	return &Factory{constructors: constructors}
}

// Create opens a session for the endpoint's driver
func (f *Factory) Create(ctx context.Context, ep Endpoint) (Session, error) {
	driver := ep.Driver
	if driver == "" {
		driver = DefaultDriver
	}

	constructor, ok := f.lookup(driver)
	if !ok {
		return nil, fmt.Errorf("unknown storage driver %q: %w", driver, ErrInvalidConfig)
	}

	ep.Driver = driver
	return constructor(ctx, ep)
}

func (f *Factory) lookup(driver string) (DriverConstructor, bool) {
	if f.constructors != nil {
		c, ok := f.constructors[driver]
		return c, ok
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := driverRegistry[driver]
	return c, ok
}
