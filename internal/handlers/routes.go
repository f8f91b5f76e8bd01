package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers the scheduling engine's HTTP surface.
func RegisterRoutes(h *Handler, r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Queue orchestrator operations
	r.HandleFunc("/api/queue", h.GetQueue).Methods("GET")
	r.HandleFunc("/api/posts", h.CreatePost).Methods("POST")
	r.HandleFunc("/api/posts/batch/approve", h.BatchApprove).Methods("POST")
	r.HandleFunc("/api/posts/batch/delete", h.BatchDelete).Methods("POST")
	r.HandleFunc("/api/posts/{id}/approve", h.ApprovePost).Methods("POST")
	r.HandleFunc("/api/posts/{id}/send", h.SendPost).Methods("POST")
	r.HandleFunc("/api/posts/{id}/retry", h.RetryPost).Methods("POST")
	r.HandleFunc("/api/posts/{id}/caption", h.UpdateCaption).Methods("PUT")
	r.HandleFunc("/api/posts/{id}/schedule", h.UpdateSchedule).Methods("PUT")
	r.HandleFunc("/api/posts/{id}", h.DeletePost).Methods("DELETE")

	// Posting profiles and slot suggestions
	r.HandleFunc("/api/accounts/{id}/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/api/accounts/{id}/slots", h.GetSlots).Methods("GET")
	r.HandleFunc("/api/accounts/{id}/posts/suggest", h.SuggestPosts).Methods("POST")
}
