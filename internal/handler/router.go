package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(viewerHandler *ViewerHandler, allowedOrigins []string, middleware ...mux.MiddlewareFunc) http.Handler {
	router := mux.NewRouter()
	for _, m := range middleware {
		router.Use(m)
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"pdf-canvas-viewer"}`))
	}).Methods("GET")

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/viewers", viewerHandler.CreateViewer).Methods("POST")
	api.HandleFunc("/viewers/{id}", viewerHandler.GetViewer).Methods("GET")
	api.HandleFunc("/viewers/{id}", viewerHandler.DeleteViewer).Methods("DELETE")

	// Input sources
	api.HandleFunc("/viewers/{id}/file", viewerHandler.PickFile).Methods("POST")
	api.HandleFunc("/viewers/{id}/drop", viewerHandler.Drop).Methods("POST")
	api.HandleFunc("/viewers/{id}/dragover", viewerHandler.DragOver).Methods("POST")
	api.HandleFunc("/viewers/{id}/dragleave", viewerHandler.DragLeave).Methods("POST")
	api.HandleFunc("/viewers/{id}/controls/{control}", viewerHandler.Control).Methods("POST")
	api.HandleFunc("/viewers/{id}/keys", viewerHandler.Key).Methods("POST")
	api.HandleFunc("/viewers/{id}/fullscreenchange", viewerHandler.FullscreenChange).Methods("POST")
	api.HandleFunc("/viewers/{id}/close", viewerHandler.CloseDocument).Methods("POST")

	api.HandleFunc("/viewers/{id}/surface.png", viewerHandler.Surface).Methods("GET")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			requestIDHeader,
		},
		ExposedHeaders: []string{
			requestIDHeader,
			"X-Render-Generation",
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
