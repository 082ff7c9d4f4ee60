package exception

import (
	"os"
	"runtime/debug"

	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/monitoring"
)

// SafeGo runs fn on its own goroutine and swallows panics after
// logging them, for workers the node can live without.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("Panic in: ", name, r, string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeGoWithPanic is SafeGo for goroutines the node cannot run
// without; a recovered panic still terminates the process.
func SafeGoWithPanic(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("Panic in: ", name, r, string(debug.Stack()))
				os.Exit(1)
			}
		}()
		fn()
	}()
}
