package api

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// RegisterRoutes wires h into a router. Requests are logged to accessLog when
// it is not nil.
func RegisterRoutes(h *Handler, accessLog io.Writer) http.Handler {
	router := mux.NewRouter()

	// Grid endpoints
	router.HandleFunc("/level", h.LevelForDistance).Methods("GET")
	router.HandleFunc("/cells/point", h.CellForPoint).Methods("GET")
	router.HandleFunc("/cells/cover", h.CoverShape).Methods("POST")
	router.HandleFunc("/cells/{token}", h.GetCell).Methods("GET")
	router.HandleFunc("/cells/{token}/children", h.GetChildren).Methods("GET")
	router.HandleFunc("/cells/{token}/point", h.GetPoint).Methods("GET")
	router.HandleFunc("/cells/{token}/documents", h.CellDocuments).Methods("GET")

	// Index endpoints
	router.HandleFunc("/documents", h.CreateDocument).Methods("POST")
	router.HandleFunc("/documents/{id}", h.DeleteDocument).Methods("DELETE")
	router.HandleFunc("/search", h.Search).Methods("POST")
	router.HandleFunc("/nearby", h.Nearby).Methods("GET")

	// Add CORS support
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	var handler http.Handler = cors(router)
	if accessLog != nil {
		handler = handlers.CombinedLoggingHandler(accessLog, handler)
	}
	return handler
}
