package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/ingest"
	"recipe-ingest/internal/models"
)

type ingestURLRequest struct {
	URL string `json:"url"`
}

type conflictResponse struct {
	Conflict         models.Conflict            `json:"conflict"`
	ExtractedData    models.ExtractedRecipeData `json:"extractedData"`
	ValidationResult models.ValidationResult    `json:"validationResult"`
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		writeError(w, apperr.New(apperr.KindValidation, "url is required"))
		return
	}

	result, err := s.svc.IngestURL(r.Context(), userFrom(r.Context()), req.URL)
	if err != nil {
		var conflictErr *ingest.ErrConflict
		if errors.As(err, &conflictErr) {
			writeJSON(w, http.StatusConflict, conflictResponse{
				Conflict:         conflictErr.Conflict,
				ExtractedData:    result.ExtractedData,
				ValidationResult: result.ValidationResult,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		writeError(w, apperr.New(apperr.KindValidation, "url is required"))
		return
	}

	result, err := s.svc.Preview(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readUpload pulls the uploaded file out of the multipart form under the
// configured size cap.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(s.cfg.UploadMaxBytes); err != nil {
		return "", nil, apperr.Wrap(apperr.KindValidation, "invalid upload", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindValidation, "file field is required", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindValidation, "read upload", err)
	}
	return header.Filename, data, nil
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.svc.IngestDocument(r.Context(), userFrom(r.Context()), filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Summary.Saved > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handleDocumentAsync(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := s.svc.IngestDocumentAsync(r.Context(), userFrom(r.Context()), filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req ingest.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	// Each URL is a full extraction, so the batch pays per source.
	if !s.chargeLimiter(w, r, len(req.URLs)) {
		return
	}

	job, err := s.svc.IngestBatch(r.Context(), userFrom(r.Context()), req, s.batchOptions())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobId": job.ID, "totalUrls": len(req.URLs)})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobStore.Get(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobId")
	if _, err := s.jobStore.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	cancelled, err := s.jobStore.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

type resolveRequest struct {
	Conflicts   []models.Conflict   `json:"conflicts"`
	Resolutions []models.Resolution `json:"resolutions"`
}

func (s *Server) handleResolveConflicts(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.resolver.Resolve(r.Context(), userFrom(r.Context()), req.Conflicts, req.Resolutions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
