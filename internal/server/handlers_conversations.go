package server

import (
	"net/http"
	"strconv"

	"notesec/internal/api"
)

func (s *Server) handleLoadConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathValueOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	payloads, err := s.chat.LoadConversation(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathValueOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	index, err := parseSequenceIndex(r.PathValue("index"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req api.SaveMessageRequest
	if !s.decodeJSONReq(w, r, defaultJSONMaxBody, &req) {
		return
	}
	resp, err := s.chat.SaveMessage(r.Context(), id, index, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathValueOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.SaveAttachmentRequest
	if !s.decodeJSONReq(w, r, attachmentJSONMaxBody, &req) {
		return
	}
	resp, err := s.chat.SaveAttachment(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathValueOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	attachmentID, ok := s.pathValueOrBadRequest(w, r, "attachment_id")
	if !ok {
		return
	}
	slot, err := s.chat.ReadAttachment(r.Context(), id, attachmentID, r.PathValue("slot"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", slot.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(slot.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(slot.Data); err != nil {
		s.log().Error("write attachment slot", "conversation_id", id, "attachment_id", attachmentID, "error", err)
	}
}
