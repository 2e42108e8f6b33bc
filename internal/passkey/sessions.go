// Package passkey holds the WebAuthn ceremony state and the adapters between
// stored passkeys and the go-webauthn library.
package passkey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// SessionTTL bounds how long a ceremony may take between begin and finish.
const SessionTTL = 5 * time.Minute

type session struct {
	data    webauthn.SessionData
	expires time.Time
}

// SessionStore keeps in-flight registration and login ceremonies in memory.
// Every session can be consumed once.
type SessionStore struct {
	mu           sync.Mutex
	ttl          time.Duration
	now          func() time.Time
	registration map[string]session
	login        map[string]session
}

// NewSessionStore creates an empty store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:          ttl,
		now:          time.Now,
		registration: make(map[string]session),
		login:        make(map[string]session),
	}
}

// SaveRegistration stores the registration ceremony for userID, replacing
// any earlier one.
func (s *SessionStore) SaveRegistration(userID string, data webauthn.SessionData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.registration[userID] = session{data: data, expires: s.now().Add(s.ttl)}
}

// ConsumeRegistration returns and forgets the registration ceremony of userID.
func (s *SessionStore) ConsumeRegistration(userID string) (webauthn.SessionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(s.registration, userID)
}

// SaveLogin stores a login ceremony under a new random ID.
func (s *SessionStore) SaveLogin(data webauthn.SessionData) (string, error) {
	id, err := randomID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.login[id] = session{data: data, expires: s.now().Add(s.ttl)}
	return id, nil
}

// ConsumeLogin returns and forgets the login ceremony with the given ID.
func (s *SessionStore) ConsumeLogin(id string) (webauthn.SessionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(s.login, id)
}

// Len reports how many unexpired ceremonies are held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.registration) + len(s.login)
}

func (s *SessionStore) take(m map[string]session, key string) (webauthn.SessionData, bool) {
	sess, ok := m[key]
	if !ok {
		return webauthn.SessionData{}, false
	}
	delete(m, key)
	if !s.now().Before(sess.expires) {
		return webauthn.SessionData{}, false
	}
	return sess.data, true
}

// sweep drops expired sessions. Callers hold s.mu.
func (s *SessionStore) sweep() {
	now := s.now()
	for _, m := range []map[string]session{s.registration, s.login} {
		for k, sess := range m {
			if !now.Before(sess.expires) {
				delete(m, k)
			}
		}
	}
}

func randomID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
