package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"tomatoclock/internal/core/pomodoro"
)

type completedPayload struct {
	Mode     string              `json:"mode"`
	NextMode string              `json:"nextMode"`
	State    pomodoro.TimerState `json:"state"`
}

// sseEvents streams the current state, then every state change and completion.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id := uuid.New().String()
	ch := h.events.Subscribe(id)
	defer h.events.Unsubscribe(id)

	sendSSE(w, flusher, "state", h.ctrl.State())

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type == pomodoro.EventCompleted {
				sendSSE(w, flusher, "completed", completedPayload{
					Mode:     string(event.Mode),
					NextMode: string(event.NextMode),
					State:    event.State,
				})
				continue
			}
			sendSSE(w, flusher, "state", event.State)
		case <-r.Context().Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	flusher.Flush()
}
