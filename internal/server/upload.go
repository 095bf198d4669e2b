// Package server stores uploaded files and produces the attachment
// descriptors clients reference in send_message payloads.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mwestri/chatwire/internal/chat"
)

// UploadStore saves uploaded files to a local directory and hands back
// attachment descriptors. The chat core never opens these files; it only
// passes the descriptor through.
type UploadStore struct {
	dir     string
	maxSize int64
}

// NewUploadStore creates the upload directory if needed and returns a
// store writing into it.
func NewUploadStore(dir string, maxSize int64) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &UploadStore{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the directory uploaded files are stored in.
func (s *UploadStore) Dir() string {
	return s.dir
}

// Save writes one uploaded file under a unique name and returns its
// attachment descriptor. The original filename survives only in the
// descriptor; the stored name keeps its extension but is never trusted
// as a path.
func (s *UploadStore) Save(file multipart.File, header *multipart.FileHeader) (*chat.Attachment, error) {
	name := fmt.Sprintf("file-%s%s", uuid.NewString(), filepath.Ext(header.Filename))

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		return nil, fmt.Errorf("write upload file: %w", err)
	}

	mimetype := header.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	return &chat.Attachment{
		Filename:     name,
		OriginalName: header.Filename,
		Mimetype:     mimetype,
		Size:         size,
		URL:          "/uploads/" + name,
	}, nil
}

// Upload accepts one multipart file under the "file" field and responds
// with its attachment descriptor. Uploads beyond the configured size
// limit are rejected.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.maxSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	attachment, err := h.uploads.Save(file, header)
	if err != nil {
		log.Printf("Error storing upload from %s: %v", r.RemoteAddr, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(attachment); err != nil {
		log.Printf("Error writing upload response: %v", err)
	}
}

// isBodyTooLarge detects the MaxBytesReader limit regardless of how the
// multipart parser surfaced it.
func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
