package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cashly-rent-a-car/bingo/internal"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HealthHandler)

	r.HandleFunc("/rooms", s.CreateRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/rooms/{pin:[0-9]{4}}", s.RoomInfoHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/admin/report", s.ReportHandler).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/ws/admin", s.HandleAdminWebSocket)
	r.HandleFunc("/ws/{pin:[0-9]{4}}", s.HandleRoomWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRoomHandler allocates a fresh room and answers with its pin and
// shareable magic link.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.registry.CreateRoom()
	if err != nil {
		log.Printf("[Server] room creation failed: %v", err)
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"pin":       actor.Pin(),
		"magicLink": actor.MagicLink(),
	})
}

// RoomInfoHandler answers with a live room summary, 404 for unknown pins.
func (s *Server) RoomInfoHandler(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]

	actor, ok := s.registry.Get(pin)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	info, ok := actor.Info()
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ReportHandler ingests one room stats report from the side channel.
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request) {
	var report internal.RoomReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "invalid report", http.StatusBadRequest)
		return
	}

	s.aggregator.HandleReport(report)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
