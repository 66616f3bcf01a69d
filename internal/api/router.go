package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "chat-relay/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures a chi router with all the application's
// routes. staticDir holds the chat UI; its index.html is served at /.
func NewRouter(chatHandler *ChatHandler, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID) // Injects a unique request ID into the context.
	r.Use(middleware.RealIP)    // Sets the remote address to the real IP from proxy headers.
	r.Use(middleware.Logger)    // Logs the start and end of each request.
	r.Use(middleware.Recoverer) // Recovers from panics and returns a 500 error.

	// Serves the auto-generated Swagger UI for API documentation.
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Health check endpoint for container orchestration probes.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Standard JSON routes get a request timeout so client connections
		// cannot hang indefinitely.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/config", chatHandler.GetConfig)
			r.Get("/settings", chatHandler.GetSettings)
			r.Put("/settings", chatHandler.UpdateSettings)
			r.Delete("/chat/history", chatHandler.ClearHistory)
		})

		// The streaming chat route must NOT have a timeout: it holds the
		// connection open for as long as the completion takes.
		r.Group(func(r chi.Router) {
			r.Post("/chat", chatHandler.HandleChat)
		})
	})

	// --- Frontend File Server ---
	// Serves the static chat UI; index.html answers GET /.
	fileServer := http.FileServer(http.Dir(staticDir))
	r.Handle("/*", fileServer)

	return r
}
