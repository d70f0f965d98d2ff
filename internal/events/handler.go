package events

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const keepAlive = 30 * time.Second

// StreamHandler serves the hub as text/event-stream. The stream ends
// when the client goes away or the hub is closed.
func StreamHandler(h *Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		client := h.Connect(userID)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			stream(w, h, client, keepAlive)
		}))
		return nil
	}
}

// stream writes client's events to w until the channel closes or a write
// fails, then disconnects the client.
func stream(w *bufio.Writer, h *Hub, client *Client, every time.Duration) {
	defer h.Disconnect(client.ID)

	if err := writeEvent(w, Event{Type: TypeConnected, Data: fmt.Sprintf(`{"client_id":%q}`, client.ID)}); err != nil {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-client.Events:
			if !ok {
				return
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, e Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, e.Data); err != nil {
		return err
	}
	return w.Flush()
}
