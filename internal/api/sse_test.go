package api

import (
	"testing"
	"time"

	"github.com/cosmos-link/code-agent/internal/task"
)

func TestSSEManagerBroadcast(t *testing.T) {
	m := NewSSEManager()
	defer m.Close()

	a := m.Register("t1")
	b := m.Register("t2")

	m.Broadcast(task.Task{ID: "t1", Status: task.StatusParsing})

	select {
	case got := <-a.Channel:
		if got.Status != task.StatusParsing {
			t.Errorf("status = %q", got.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("client for t1 got nothing")
	}

	select {
	case got := <-b.Channel:
		t.Errorf("client for t2 received %+v", got)
	default:
	}

	m.Unregister(a)
	if _, ok := <-a.Channel; ok {
		t.Error("channel still open after Unregister")
	}
}

func TestSSEManagerClosed(t *testing.T) {
	m := NewSSEManager()
	m.Close()
	m.Close()

	done := make(chan struct{})
	go func() {
		c := m.Register("t")
		m.Broadcast(task.Task{ID: "t"})
		m.Unregister(c)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("calls blocked after Close")
	}
}
