package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/linnix-systems/cognitod/internal/broadcast"
	"github.com/linnix-systems/cognitod/internal/rules"
)

// AlertFileHandler appends every alert it observes on a rules.Engine's
// broadcast stream as a JSON line to a file. Unlike the {OnEvent,OnSnapshot}
// Handler capability, this sink is driven directly off the engine's
// broadcast.Subscriber rather than a periodic tick, since by the time an
// alert exists the engine has already done the work of firing it — ticking
// the engine a second time here would double-evaluate every rule. Matches
// the `--handler rules:<path>` CLI flag (spec §6).
type AlertFileHandler struct {
	mu   sync.Mutex
	file *os.File
}

// NewAlertFileHandler opens (creating if needed) path for append.
func NewAlertFileHandler(path string) (*AlertFileHandler, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open alert sink %q: %w", path, err)
	}
	return &AlertFileHandler{file: f}, nil
}

// Run drains sub until ctx is canceled or the underlying channel closes,
// writing each received alert as a line. Lag is logged and skipped, not
// fatal.
func (h *AlertFileHandler) Run(ctx context.Context, sub *broadcast.Subscriber[rules.Alert]) {
	for {
		alert, err := sub.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[handler:rules] %v", err)
			continue
		}
		h.writeLine(alert)
	}
}

func (h *AlertFileHandler) writeLine(alert rules.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		return
	}
	data = append(data, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	h.file.Write(data)
}

// Close closes the underlying file.
func (h *AlertFileHandler) Close() error {
	return h.file.Close()
}
