package realtime

import (
	"strconv"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	hub.Register("device_a", conn1)
	hub.Register("device_a", conn2)
	if got := hub.Count("device_a"); got != 2 {
		t.Fatalf("Expected 2 connections, got %d", got)
	}

	hub.Unregister("device_a", conn1)
	if got := hub.Count("device_a"); got != 1 {
		t.Fatalf("Expected 1 connection, got %d", got)
	}

	// Unregistering a connection twice is harmless.
	hub.Unregister("device_a", conn1)
	hub.Unregister("device_a", conn2)
	if got := hub.Count("device_a"); got != 0 {
		t.Fatalf("Expected 0 connections, got %d", got)
	}
}

func TestHub_CloseDeviceWithoutConnections(t *testing.T) {
	hub := NewHub()
	hub.CloseDevice("device_missing")
	if got := hub.Count("device_missing"); got != 0 {
		t.Fatalf("Expected 0 connections, got %d", got)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			hub.Register("device_"+strconv.Itoa(i%10), &websocket.Conn{})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			hub.Count("device_" + strconv.Itoa(i%10))
		}
	}()

	wg.Wait()
}
