package session

import (
	"context"
	"fmt"

	"github.com/alexedwards/scs/v2"
)

// Scope is the key-value storage of the session loaded into one request
// context.
type Scope struct {
	manager *scs.SessionManager
	ctx     context.Context
}

// Value reads a key.
func (s *Scope) Value(key string) (string, bool) {
	if !s.manager.Exists(s.ctx, key) {
		return "", false
	}
	return s.manager.GetString(s.ctx, key), true
}

// SetValue writes a key and commits the session straight away, since
// streaming responses may have sent their headers long before the run ends.
func (s *Scope) SetValue(key, value string) error {
	s.manager.Put(s.ctx, key, value)
	if _, _, err := s.manager.Commit(s.ctx); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}
