package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Conversations.
	mux.HandleFunc("GET /v1/conversations/{id}/messages", s.handleLoadConversation)
	mux.HandleFunc("PUT /v1/conversations/{id}/messages/{index}", s.handleSaveMessage)
	mux.HandleFunc("POST /v1/conversations/{id}/attachments", s.handleSaveAttachment)
	mux.HandleFunc("GET /v1/conversations/{id}/attachments/{attachment_id}/{slot}", s.handleReadAttachment)

	// Notes.
	mux.HandleFunc("POST /v1/notes", s.handleCreateNote)
	mux.HandleFunc("GET /v1/notes/{id}", s.handleGetNote)

	return mux
}
