package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeClient records written lines and can be told to fail writes.
type fakeClient struct {
	mu        sync.Mutex
	lines     []string
	failWrite bool
}

func (f *fakeClient) ReadLine() (string, error) { return "", errors.New("not implemented") }

func (f *fakeClient) WriteLine(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("write failed")
	}
	f.lines = append(f.lines, message)
	return nil
}

func (f *fakeClient) Close() error       { return nil }
func (f *fakeClient) RemoteAddr() string { return "test:0" }

func (f *fakeClient) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}

func TestRegistry_Broadcast(t *testing.T) {
	registry := NewRegistry()

	c1 := &fakeClient{}
	c2 := &fakeClient{}
	s1 := NewSession(c1)
	s2 := NewSession(c2)
	registry.Add(s1)
	registry.Add(s2)

	registry.Broadcast("GAME_START")

	if got := c1.received(); len(got) != 1 || got[0] != "GAME_START" {
		t.Errorf("client 1 received %v, want [GAME_START]", got)
	}
	if got := c2.received(); len(got) != 1 || got[0] != "GAME_START" {
		t.Errorf("client 2 received %v, want [GAME_START]", got)
	}
}

func TestRegistry_BroadcastExcept(t *testing.T) {
	registry := NewRegistry()

	c1 := &fakeClient{}
	c2 := &fakeClient{}
	s1 := NewSession(c1)
	s2 := NewSession(c2)
	registry.Add(s1)
	registry.Add(s2)

	registry.BroadcastExcept("PLAYER_SPAWN:Player1,Alice,0,0,0,0,0,0", s1)

	if got := c1.received(); len(got) != 0 {
		t.Errorf("excluded session received %v, want nothing", got)
	}
	if got := c2.received(); len(got) != 1 {
		t.Errorf("other session received %v, want one line", got)
	}
}

func TestRegistry_BroadcastSkipsBrokenSession(t *testing.T) {
	registry := NewRegistry()

	broken := &fakeClient{failWrite: true}
	healthy := &fakeClient{}
	registry.Add(NewSession(broken))
	registry.Add(NewSession(healthy))

	registry.Broadcast("WAVE_STATUS:0,3")

	// Delivery to the healthy session must not be affected
	if got := healthy.received(); len(got) != 1 || got[0] != "WAVE_STATUS:0,3" {
		t.Errorf("healthy session received %v, want [WAVE_STATUS:0,3]", got)
	}
}

func TestRegistry_SendToPlayer(t *testing.T) {
	registry := NewRegistry()

	c1 := &fakeClient{}
	c2 := &fakeClient{}
	s1 := NewSession(c1)
	s2 := NewSession(c2)
	registry.Add(s1)
	registry.Add(s2)
	s1.bindPlayer("Player1")
	registry.BindPlayer("Player1", s1)

	registry.SendToPlayer("Player1", "POINTS:150")
	registry.SendToPlayer("Player99", "POINTS:0") // Unknown, dropped

	if got := c1.received(); len(got) != 1 || got[0] != "POINTS:150" {
		t.Errorf("Player1 received %v, want [POINTS:150]", got)
	}
	if got := c2.received(); len(got) != 0 {
		t.Errorf("other session received %v, want nothing", got)
	}
}

func TestRegistry_RemoveDropsPlayerBinding(t *testing.T) {
	registry := NewRegistry()

	c := &fakeClient{}
	s := NewSession(c)
	registry.Add(s)
	s.bindPlayer("Player1")
	registry.BindPlayer("Player1", s)

	registry.Remove(s)

	registry.SendToPlayer("Player1", "POINTS:100")
	if got := c.received(); len(got) != 0 {
		t.Errorf("removed session received %v, want nothing", got)
	}
	if registry.Count() != 0 {
		t.Errorf("expected empty registry, got %d sessions", registry.Count())
	}
}

func TestRegistry_ConcurrentBroadcast(t *testing.T) {
	registry := NewRegistry()

	clients := make([]*fakeClient, 10)
	for i := range clients {
		clients[i] = &fakeClient{}
		registry.Add(NewSession(clients[i]))
	}

	const broadcasts = 50
	var wg sync.WaitGroup
	for i := 0; i < broadcasts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			registry.Broadcast(fmt.Sprintf("ENEMY_UPDATE:%d,0,0,0", n))
		}(i)
	}
	wg.Wait()

	for i, c := range clients {
		if got := len(c.received()); got != broadcasts {
			t.Errorf("client %d received %d lines, want %d", i, got, broadcasts)
		}
	}
}

func TestSession_DeadAfterWriteFailure(t *testing.T) {
	c := &fakeClient{failWrite: true}
	s := NewSession(c)

	if err := s.SendLine("MERCHANT_POS:0,0,0"); err == nil {
		t.Error("expected error from failed write")
	}

	// Subsequent sends are dropped without error
	c.mu.Lock()
	c.failWrite = false
	c.mu.Unlock()
	if err := s.SendLine("MERCHANT_POS:1,1,1"); err != nil {
		t.Errorf("send on dead session should be a silent drop, got %v", err)
	}
	if got := c.received(); len(got) != 0 {
		t.Errorf("dead session wrote %v, want nothing", got)
	}
}

func TestSession_BindPlayerOnce(t *testing.T) {
	s := NewSession(&fakeClient{})

	if !s.bindPlayer("Player1") {
		t.Error("first bind should succeed")
	}
	if s.bindPlayer("Player2") {
		t.Error("second bind should be rejected")
	}
	if got := s.PlayerID(); got != "Player1" {
		t.Errorf("PlayerID() = %q, want Player1", got)
	}
}

func TestExtractPlayerLines(t *testing.T) {
	// Broadcast lines carry no trailing whitespace the transports would
	// need to strip.
	registry := NewRegistry()
	c := &fakeClient{}
	registry.Add(NewSession(c))

	registry.Broadcast("CHAT:Player1:hello there")

	got := c.received()
	if len(got) != 1 {
		t.Fatalf("received %d lines, want 1", len(got))
	}
	if strings.TrimSpace(got[0]) != got[0] {
		t.Errorf("broadcast line %q has surrounding whitespace", got[0])
	}
}
