package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/fileio"
)

// textLikeExtensions get a text/plain Content-Type on download; everything
// else falls back to application/octet-stream, per spec.md §6.
var textLikeExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".yaml": true, ".yml": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".sh": true,
	".c": true, ".cpp": true, ".h": true, ".java": true, ".rb": true,
	".rs": true, ".html": true, ".css": true, ".csv": true, ".log": true,
}

func validatedPath(w http.ResponseWriter, s *Server, queryKey string, r *http.Request) (string, bool) {
	p := r.URL.Query().Get(queryKey)
	if err := fileio.ValidatePath(s.workDir, p); err != nil {
		writeValidationError(w, err.Error(), map[string]any{queryKey: "invalid"})
		return "", false
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.workDir, p)
	}
	return filepath.Clean(p), true
}

func (s *Server) handleFilesList(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dirPath, ok := validatedPath(w, s, "path", r)
	if !ok {
		return
	}

	entries, err := s.files.List(r.Context(), id, dirPath)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"path":       dirPath,
		"entries":    entries,
		"totalCount": len(entries),
	})
}

func (s *Server) handleFilesUpload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	destPath, ok := validatedPath(w, s, "targetPath", r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeValidationError(w, "malformed multipart form", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, "file field is required", map[string]any{"file": "required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeValidationError(w, "failed to read uploaded file", nil)
		return
	}

	if err := s.files.Upload(r.Context(), id, destPath, content, 0o644); err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"success": true, "filePath": destPath})
}

func (s *Server) handleFilesDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	srcPath, ok := validatedPath(w, s, "path", r)
	if !ok {
		return
	}

	data, err := s.files.Download(r.Context(), id, srcPath)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeAPIError(w, ErrFileNotFound)
			return
		}
		writeAPIError(w, err)
		return
	}

	ext := path.Ext(srcPath)
	contentType := "application/octet-stream"
	if textLikeExtensions[ext] {
		contentType = "text/plain; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(srcPath)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleFilesDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	targetPath, ok := validatedPath(w, s, "path", r)
	if !ok {
		return
	}

	if err := s.files.Delete(r.Context(), id, targetPath); err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"path": targetPath, "deleted": true})
}
