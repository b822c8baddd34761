package handler

import (
	"testing"

	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

type countingHandler struct {
	name     string
	events   int
	snaps    int
	lastPid  uint32
	lastLoad float64
}

func (c *countingHandler) Name() string { return c.name }
func (c *countingHandler) OnEvent(event telemetry.ProcessEvent) {
	c.events++
	c.lastPid = event.Pid
}
func (c *countingHandler) OnSnapshot(snap context.SystemSnapshot) {
	c.snaps++
	c.lastLoad = snap.LoadAvg1
}

func TestListFansOutToEveryHandlerInOrder(t *testing.T) {
	var list List
	a := &countingHandler{name: "a"}
	b := &countingHandler{name: "b"}
	list.Register(a)
	list.Register(b)

	list.OnEvent(telemetry.ProcessEvent{Pid: 77})
	list.OnSnapshot(context.SystemSnapshot{LoadAvg1: 1.5})

	for _, h := range []*countingHandler{a, b} {
		if h.events != 1 || h.lastPid != 77 {
			t.Errorf("handler %s: events=%d lastPid=%d, want 1/77", h.name, h.events, h.lastPid)
		}
		if h.snaps != 1 || h.lastLoad != 1.5 {
			t.Errorf("handler %s: snaps=%d lastLoad=%v, want 1/1.5", h.name, h.snaps, h.lastLoad)
		}
	}
}

func TestListWithNoHandlersDoesNotPanic(t *testing.T) {
	var list List
	list.OnEvent(telemetry.ProcessEvent{})
	list.OnSnapshot(context.SystemSnapshot{})
}
