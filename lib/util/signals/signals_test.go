package signals

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetInterrupters(t *testing.T) {
	t.Helper()
	mu.Lock()
	original := interrupters
	interrupters = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		interrupters = original
		mu.Unlock()
	})
}

func TestRegisterInterruptHandlerCallsOnDispatch(t *testing.T) {
	resetInterrupters(t)
	called := false
	RegisterInterruptHandler(func() { called = true })
	handleInterrupted()
	assert.True(t, called)
}

func TestRegisterInterruptHandlerIgnoresNil(t *testing.T) {
	resetInterrupters(t)
	id := RegisterInterruptHandler(nil)
	assert.Equal(t, HandlerID(-1), id)
	mu.RLock()
	count := len(interrupters)
	mu.RUnlock()
	assert.Equal(t, 0, count)
}

func TestMultipleInterruptHandlersAllCalled(t *testing.T) {
	resetInterrupters(t)
	var mu sync.Mutex
	callCount := 0
	for i := 0; i < 5; i++ {
		RegisterInterruptHandler(func() {
			mu.Lock()
			callCount++
			mu.Unlock()
		})
	}
	handleInterrupted()
	assert.Equal(t, 5, callCount)
}

func TestDeregisterInterruptHandler(t *testing.T) {
	resetInterrupters(t)
	called := false
	id := RegisterInterruptHandler(func() { called = true })
	DeregisterInterruptHandler(id)
	handleInterrupted()
	assert.False(t, called)
}

func TestDeregisterInvalidInterruptHandlerIDIsNoop(t *testing.T) {
	resetInterrupters(t)
	RegisterInterruptHandler(func() {})
	DeregisterInterruptHandler(999)
	mu.RLock()
	count := len(interrupters)
	mu.RUnlock()
	assert.Equal(t, 1, count)
}

func TestInterruptHandlerPanicRecoveryLetsRemainingHandlersRun(t *testing.T) {
	resetInterrupters(t)
	calledAfterPanic := false
	RegisterInterruptHandler(func() { panic("boom") })
	RegisterInterruptHandler(func() { calledAfterPanic = true })
	assert.NotPanics(t, handleInterrupted)
	assert.True(t, calledAfterPanic)
}

func TestConcurrentInterruptHandlerRegistration(t *testing.T) {
	resetInterrupters(t)
	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RegisterInterruptHandler(func() {})
		}()
	}
	wg.Wait()
	mu.RLock()
	count := len(interrupters)
	mu.RUnlock()
	assert.Equal(t, n, count)
}

func TestStopHandleIsIdempotent(t *testing.T) {
	// StopHandle closes the package-level sigChan exactly once; this test
	// only proves calling it twice from the same process doesn't panic
	// (a real close-of-closed-channel would).
	local := make(chan struct{})
	go func() {
		require.NotPanics(t, StopHandle)
		require.NotPanics(t, StopHandle)
		close(local)
	}()
	<-local
}
