// Package registry keeps track of task types that have completed their
// one-time registration with the scheduler. Registration is keyed by the
// task's Go type; repeated or concurrent registration is safe and redundant.
package registry

import (
	"reflect"
	"strings"
	"sync"

	"github.com/viant/x"
)

// Service records registered task types.
type Service struct {
	mux   sync.RWMutex
	types *x.Registry
	names map[string]bool
}

// New creates an empty registry.
func New() *Service {
	return &Service{
		types: x.NewRegistry(),
		names: map[string]bool{},
	}
}

// Register marks the task's type as registered. Idempotent.
func (s *Service) Register(task interface{}) {
	name := Name(task)
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.names[name] {
		return
	}
	s.names[name] = true
	s.types.Register(x.NewType(taskType(task)))
}

// Registered reports whether the task's type completed registration.
func (s *Service) Registered(task interface{}) bool {
	name := Name(task)
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.names[name]
}

// Lookup returns the registered reflective type for a registration key as
// produced by Name, or nil. Bare type names are qualified against the
// registered keys so both spellings resolve.
func (s *Service) Lookup(name string) *x.Type {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if ret := s.types.Lookup(name); ret != nil {
		return ret
	}
	if strings.Contains(name, ".") {
		return nil
	}
	for key := range s.names {
		if strings.HasSuffix(key, "."+name) {
			return s.types.Lookup(key)
		}
	}
	return nil
}

// Name derives the registration key for a task.
func Name(task interface{}) string {
	t := taskType(task)
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func taskType(task interface{}) reflect.Type {
	t := reflect.TypeOf(task)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
