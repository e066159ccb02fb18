package api

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/stewardhq/steward/internal/records"
)

// handleDocumentHTML renders a stored markdown document as HTML.
func (s *Server) handleDocumentHTML(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	doc, err := s.records.GetDocument(userID, id)
	if err != nil {
		var notFound *records.ErrNotFound
		if errors.As(err, &notFound) {
			s.errorResponse(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("load document failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load document")
		return
	}

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(doc.Content), &body); err != nil {
		s.logger.Error("markdown render failed", "document_id", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to render document")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><title>%s</title></head>\n<body>\n", html.EscapeString(doc.Title))
	w.Write(body.Bytes())
	fmt.Fprint(w, "</body>\n</html>\n")
}
