package util

import (
	"sync"

	"netcrypt/lib/transport/netcrypt"
)

var (
	sessionsMu sync.Mutex
	sessions   []*netcrypt.Session
)

// RegisterSession tracks an active session so CloseSessions can zeroize its
// key material during shutdown even when the goroutine serving its
// connection never reaches its own deferred Session.Close — the interrupt
// handler's os.Exit skips defers entirely. Thread-safe.
func RegisterSession(s *netcrypt.Session) {
	if s == nil {
		Panicf("util: RegisterSession called with a nil session")
	}
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	sessions = append(sessions, s)
	log.WithField("count", len(sessions)).Debug("registered session for shutdown cleanup")
}

// CloseSessions closes every registered session and clears the registry.
// Thread-safe; Session.Close is itself idempotent, so this is safe to call
// more than once.
func CloseSessions() {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	log.WithField("count", len(sessions)).Debug("closing all registered sessions")
	for _, s := range sessions {
		s.Close()
	}
	sessions = nil
}
