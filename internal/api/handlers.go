package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/jobstore"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/scheduler"
	"github.com/ivlev/audiogram/internal/source"
	"github.com/ivlev/audiogram/internal/storage"
	"github.com/ivlev/audiogram/internal/system"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// handleRender принимает multipart-запрос: часть "model" с описанием сцены
// в JSON и файлы "audio", "background", "image" (можно несколько).
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	model, err := readModel(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sc, err := scene.Parse(model, "json")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if strings.ContainsAny(sc.ID, `/\`) || sc.ID == "." || sc.ID == ".." {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid scene id %q", sc.ID))
		return
	}
	if s.deps.Scheduler.IsRunning(sc.ID) {
		writeError(w, http.StatusConflict, fmt.Errorf("job %s is already scheduled", sc.ID))
		return
	}

	files := s.deps.Files
	if err := files.SetupTask(sc.ID); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err := s.saveUploads(sc, r.MultipartForm); err != nil {
		_ = files.RemoveTask(sc.ID)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := sc.Prepare(files); err != nil {
		_ = files.RemoveTask(sc.ID)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkImages(sc); err != nil {
		_ = files.RemoveTask(sc.ID)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job := &cleanupJob{Job: s.deps.NewJob(sc), files: files, keep: s.deps.KeepTasks}
	id, err := s.deps.Scheduler.Submit(job)
	if err != nil {
		_ = files.RemoveTask(sc.ID)
		code := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrDuplicate) {
			code = http.StatusConflict
		}
		writeError(w, code, fmt.Errorf("failed to initialize render: %w", err))
		return
	}
	s.record(r, id, hooks.StatusQueued)

	s.logger.Info().Str("job_id", id).Msg("render task submitted")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":      id,
		"message": "Render task has been successfully initialized",
	})
}

func readModel(form *multipart.Form) ([]byte, error) {
	if v := form.Value["model"]; len(v) > 0 {
		return []byte(v[0]), nil
	}
	if fh := form.File["model"]; len(fh) > 0 {
		f, err := fh[0].Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return nil, apperr.Configuration("render request", "missing model part")
}

// saveUploads stores the uploaded files. A scene without an explicit
// audio name picks up the uploaded audio file.
func (s *Server) saveUploads(sc *scene.Scene, form *multipart.Form) error {
	parts := []struct {
		field string
		kind  storage.Kind
	}{
		{"audio", storage.KindAudio},
		{"background", storage.KindBackground},
		{"image", storage.KindImage},
		{"images", storage.KindImage},
	}
	for _, p := range parts {
		for _, fh := range form.File[p.field] {
			path, err := s.saveFile(sc.ID, p.kind, fh)
			if err != nil {
				return err
			}
			if p.kind == storage.KindAudio {
				sc.Audio = filepath.Base(path)
			}
		}
	}
	if sc.Audio == "" {
		return apperr.Configuration("render request", "missing audio part")
	}
	return nil
}

func (s *Server) saveFile(id string, kind storage.Kind, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.deps.Files.SaveResource(kind, id, fh.Filename, f)
}

// checkImages reads the header of every image layer so that a broken
// upload is rejected before the job is queued.
func checkImages(sc *scene.Scene) error {
	for _, img := range sc.Images {
		if err := source.Check(img.File); err != nil {
			return apperr.Resource("image "+filepath.Base(img.File), err)
		}
	}
	return nil
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Scheduler.Cancel(id) {
		s.record(r, id, hooks.StatusCancelled)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "canceled task with id:" + id})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path := s.deps.Files.ExportPath(id)
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no export for job %s", id))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="video_%s.mp4"`, filepath.Base(id)))
	http.ServeContent(w, r, "video.mp4", info.ModTime(), f)
}

type jobView struct {
	ID        string `json:"id"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	Scheduled bool   `json:"scheduled"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func (s *Server) view(job jobstore.Job) jobView {
	return jobView{
		ID:        job.ID,
		Status:    string(job.Status),
		Error:     job.Error,
		Scheduled: s.deps.Scheduler.IsRunning(job.ID),
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	scheduled := s.deps.Scheduler.IsRunning(id)
	if s.deps.Ledger == nil {
		if !scheduled {
			writeError(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, jobView{ID: id, Scheduled: true})
		return
	}

	job, err := s.deps.Ledger.Get(r.Context(), id)
	switch {
	case errors.Is(err, jobstore.ErrNotFound) && !scheduled:
		writeError(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
	case errors.Is(err, jobstore.ErrNotFound):
		writeJSON(w, http.StatusOK, jobView{ID: id, Scheduled: true})
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, s.view(job))
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		writeJSON(w, http.StatusOK, []jobView{})
		return
	}
	jobs, err := s.deps.Ledger.List(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, s.view(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFonts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"fontFamilies": canvas.Families()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"jobs":    s.deps.Scheduler.Len(),
		"running": s.deps.Scheduler.Running(),
		"system":  system.Stats(r.Context()),
	})
}

func (s *Server) record(r *http.Request, id string, status hooks.Status) {
	if s.deps.Ledger == nil {
		return
	}
	if err := s.deps.Ledger.UpdateStatus(r.Context(), id, status); err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("ledger update failed")
	}
}
