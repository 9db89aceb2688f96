package realtime

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewServer builds the realtime listener: /ws for clients and /healthz for probes.
// It runs beside the fiber app because fasthttp connections cannot be handed to
// gorilla/websocket.
func NewServer(addr string, hub *Hub, allowedOrigins []string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler(allowedOrigins))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(mux, "realtime"),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
