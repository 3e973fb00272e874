// Package keyboard holds the keyboard-stack collaborator the device loop polls
// once per tick, and host-side implementations of it.
package keyboard

import "github.com/starford/microslate/internal/input"

// Device is one keyboard discovered by a scan.
type Device struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	RSSI    int    `json:"rssi"`
}

// Stack is the keyboard host stack as the core sees it: a per-tick poll that
// appends decoded key transitions to the shared queue, plus a handful of
// control flags. Pairing and report parsing happen behind it.
type Stack interface {
	Setup() error
	// Poll moves pending key transitions into q and returns how many it moved.
	Poll(q *input.Queue) int

	StartScan()
	StopScan()
	Scanning() bool
	CancelPending()
	// Passkey is the pairing passkey to display, 0 when none is pending.
	Passkey() uint32
	SetAutoReconnect(enabled bool)

	Devices() []Device
	Connect(index int) error
	// Connected returns the name of the connected keyboard, "" when none.
	Connected() string
}
