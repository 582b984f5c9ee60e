//go:build windows

package main

import (
	"os"

	"github.com/alem-hub/offline-quest/internal/application/engine"
)

var sessionSignals = []os.Signal{os.Interrupt}

func handleSignal(_ *engine.Engine, _ os.Signal) bool {
	return true
}
