package server

import (
	"net/http"
	"path"

	"github.com/gorilla/mux"
)

// handleFile serves a blob to holders of a signed URL. No session is needed.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	if err := s.blobs.Authorize(p, r.URL.Query().Get("token")); err != nil {
		writeError(w, err)
		return
	}

	f, err := s.blobs.Get(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, path.Base(p), info.ModTime(), f)
}
