package domain

import (
	"encoding/json"
	"maps"
	"sync"
)

// Attributes is the open extension map carried by a session claim. It is safe for
// concurrent use: a claim may be populated and read by many requests at once.
type Attributes struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewAttributes creates an attribute map seeded with a copy of values.
func NewAttributes(values map[string]string) *Attributes {
	a := &Attributes{values: make(map[string]string, len(values))}
	maps.Copy(a.values, values)
	return a
}

// Set stores a value under key.
func (a *Attributes) Set(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.values == nil {
		a.values = make(map[string]string)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.values)
}

// Map returns a snapshot copy of the attributes.
func (a *Attributes) Map() map[string]string {
	out := make(map[string]string)
	if a == nil {
		return out
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	maps.Copy(out, a.values)
	return out
}

// MarshalJSON encodes the attributes as a JSON object.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

// UnmarshalJSON replaces the attributes with the decoded JSON object.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if values == nil {
		values = make(map[string]string)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = values
	return nil
}
