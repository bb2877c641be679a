package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"virtual-campus/logger"
	"virtual-campus/models"
)

const sseKeepAlive = 15 * time.Second

// StreamUnlocksSSE streams badge-unlocked events of one scope until the client goes away.
func (n *UnlockNotifier) StreamUnlocksSSE(c *fiber.Ctx, scope string) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		events, cancel := n.Subscribe(scope)
		defer cancel()

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeUnlockEvent(w, ev); err != nil {
					logger.Warn().Err(err).Str("scope", scope).Msg("[SSE] encode failed")
					continue
				}
			case <-ticker.C:
				w.WriteString(":\n\n")
			case <-done:
				return
			}

			if err := w.Flush(); err != nil {
				// client disconnected
				return
			}
		}
	})

	return nil
}

func writeUnlockEvent(w io.Writer, ev models.UnlockEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: badge-unlocked\ndata: %s\n\n", ev.ID, payload)
	return err
}
