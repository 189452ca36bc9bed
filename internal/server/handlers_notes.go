package server

import (
	"net/http"

	"notesec/internal/api"
)

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req api.NoteCreateRequest
	if !s.decodeJSONReq(w, r, defaultJSONMaxBody, &req) {
		return
	}
	note, err := s.chat.CreateNote(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.NoteResponse{Note: note})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathValueOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	note, err := s.chat.GetNote(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NoteResponse{Note: note})
}
