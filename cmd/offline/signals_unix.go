//go:build !windows

package main

import (
	"os"
	"syscall"

	"github.com/alem-hub/offline-quest/internal/application/engine"
)

// SIGUSR1/SIGUSR2 сообщают, что приложение ушло в фон и вернулось.
var sessionSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2}

// handleSignal возвращает true, если сигнал завершает сессию.
func handleSignal(e *engine.Engine, sig os.Signal) bool {
	switch sig {
	case syscall.SIGUSR1:
		e.Backgrounded()
		return false
	case syscall.SIGUSR2:
		e.Foregrounded()
		return false
	default:
		return true
	}
}
