package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"taskly/internal/llm"
	"taskly/internal/model"
	"taskly/internal/service"
)

func (s *Server) handleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Generator.Regenerate(r.Context(), ownerID(r.Context()))
	if err != nil {
		log.Printf("[warn] generate recommendations: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, map[string]interface{}{"recommendations": recs})
}

func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Recommendations.ListByOwner(r.Context(), ownerID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, map[string]interface{}{"recommendations": recs})
}

func (s *Server) handleAIAssistant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt   string          `json:"prompt"`
		Type     llm.Kind        `json:"type"`
		TaskData json.RawMessage `json:"taskData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if string(req.TaskData) == "null" {
		req.TaskData = nil
	}

	completer, err := s.svc.Settings.CompleterFor(r.Context(), ownerID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	answer, err := completer.Complete(r.Context(), llm.Request{
		System:  llm.SystemPrompt(req.Type),
		Prompt:  req.Prompt,
		Context: req.TaskData,
	})
	if err != nil {
		log.Printf("[warn] ai assistant: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, map[string]string{"response": answer})
}

func (s *Server) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.APIKey) == "" {
		writeStatusJSON(w, http.StatusBadRequest, map[string]interface{}{"isValid": false, "error": "API key is required"})
		return
	}
	ok, err := s.svc.Keys.Validate(r.Context(), strings.TrimSpace(req.APIKey))
	if err != nil {
		writeStatusJSON(w, http.StatusBadRequest, map[string]interface{}{"isValid": false, "error": err.Error()})
		return
	}
	writeAPIJSON(w, map[string]bool{"isValid": ok})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := model.Status(r.URL.Query().Get("status"))
	tasks, err := s.svc.Tasks.ListByStatus(r.Context(), ownerID(r.Context()), status)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, tasks)
}

func (s *Server) handleListArchived(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := s.svc.Tasks.ListArchived(r.Context(), ownerID(r.Context()), model.Status(q.Get("status")), q.Get("q"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.Get(r.Context(), ownerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var input service.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err := s.svc.Tasks.Create(r.Context(), ownerID(r.Context()), input)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, task)
}

// handleUpdateTask applies the fields present in the body on top of the
// stored task.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())
	task, err := s.svc.Tasks.Get(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	input := service.InputFrom(task)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err = s.svc.Tasks.Edit(r.Context(), owner, task.ID, input)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Tasks.Delete(r.Context(), ownerID(r.Context()), r.PathValue("id")); err != nil {
		writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.Complete(r.Context(), ownerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, task)
}

func (s *Server) handleArchiveTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.Archive(r.Context(), ownerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, task)
}

func (s *Server) handleRestoreTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.Restore(r.Context(), ownerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeAPIJSON(w, task)
}

// settingsView hides the stored key; clients only learn whether one is set.
type settingsView struct {
	Language        string `json:"language"`
	Theme           string `json:"theme"`
	Notifications   bool   `json:"notifications"`
	HasOpenAIAPIKey bool   `json:"has_openai_api_key"`
}

func viewOf(st *model.Settings) settingsView {
	return settingsView{
		Language:        st.Language,
		Theme:           st.Theme,
		Notifications:   st.Notifications,
		HasOpenAIAPIKey: st.OpenAIAPIKey != "",
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Settings.Get(r.Context(), ownerID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, viewOf(st))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())
	var upd service.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if upd.OpenAIAPIKey != nil {
		if err := s.svc.Settings.SetAPIKey(r.Context(), owner, *upd.OpenAIAPIKey); err != nil {
			writeSettingsError(w, err)
			return
		}
		upd.OpenAIAPIKey = nil
	}
	st, err := s.svc.Settings.Update(r.Context(), owner, upd)
	if err != nil {
		writeSettingsError(w, err)
		return
	}
	writeAPIJSON(w, viewOf(st))
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	device, err := s.svc.Settings.RegisterDevice(r.Context(), ownerID(r.Context()), req.Token)
	if err != nil {
		writeSettingsError(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, map[string]uint{"id": device.ID})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.Settings.Devices(r.Context(), ownerID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, devices)
}

func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrInvalidTask):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[warn] task request: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeSettingsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSettings), errors.Is(err, service.ErrInvalidAPIKey):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
