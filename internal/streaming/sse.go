package streaming

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Handler streams hub events as Server-Sent Events. The dialog is taken
// from the {dialog} path value when the route declares one, otherwise from
// the dialog_id query parameter; "types" is a comma-separated type filter.
func Handler(hub EventHub, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		filter := Filter{DialogID: r.PathValue("dialog")}
		if filter.DialogID == "" {
			filter.DialogID = r.URL.Query().Get("dialog_id")
		}
		if types := r.URL.Query().Get("types"); types != "" {
			filter.Types = strings.Split(types, ",")
		}

		ch, cancel, err := hub.Subscribe(r.Context(), filter)
		if err != nil {
			logger.Error("SSE subscribe failed", "error", err)
			http.Error(w, "subscribe failed", http.StatusInternalServerError)
			return
		}
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event := <-ch:
				data, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
				flusher.Flush()
			}
		}
	})
}
