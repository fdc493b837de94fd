package app

import (
	"sync"

	"live-trivia-service/internal/domain"
)

// Directory maps live connections to the session role they hold. It only
// routes; the registry and the sessions remain the source of truth.
type Directory struct {
	mu    sync.RWMutex
	roles map[string]domain.ConnectionRole
}

func NewDirectory() *Directory {
	return &Directory{roles: make(map[string]domain.ConnectionRole)}
}

// Bind records or replaces the role for a connection.
func (d *Directory) Bind(connID string, role domain.ConnectionRole) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[connID] = role
}

// Lookup returns the role bound to a connection.
func (d *Directory) Lookup(connID string) (domain.ConnectionRole, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.roles[connID]
	return role, ok
}

// Remove deletes and returns the role bound to a connection.
func (d *Directory) Remove(connID string) (domain.ConnectionRole, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	role, ok := d.roles[connID]
	if ok {
		delete(d.roles, connID)
	}
	return role, ok
}

// Len returns the number of bound connections.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.roles)
}
