package main

import (
	"bytes"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11ytester/a11ytester/pkg/defaults"
)

func TestSignalContextCancelOnInterrupt(t *testing.T) {
	var stderr bytes.Buffer
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(&stderr, 5*time.Second, sigChan, func(int) {})
	defer cancel()

	sigChan <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after signal")
	}
	assert.Contains(t, stderr.String(), "Interrupt received")
}

func TestSignalContextManualCancel(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(io.Discard, 5*time.Second, sigChan, nil)
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after manual cancel")
	}
}

func TestSignalContextSecondSignalExits(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var code atomic.Int32
	code.Store(-1)

	ctx, cancel := signalContextWithNotifier(io.Discard, 5*time.Second, sigChan, func(c int) {
		code.Store(int32(c))
	})
	defer cancel()

	sigChan <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after first signal")
	}

	sigChan <- os.Interrupt
	require.Eventually(t, func() bool {
		return code.Load() == int32(defaults.ExitAuditError)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignalContextGraceExpires(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var called atomic.Bool

	ctx, cancel := signalContextWithNotifier(io.Discard, 50*time.Millisecond, sigChan, func(int) {
		called.Store(true)
	})
	defer cancel()

	sigChan <- os.Interrupt
	<-ctx.Done()
	time.Sleep(150 * time.Millisecond)

	// Nobody is listening any more, so a late signal only fills the buffer.
	sigChan <- os.Interrupt
	time.Sleep(50 * time.Millisecond)
	assert.False(t, called.Load())
}
