package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/analysis"
	"renkioo/server/internal/assistant"
	"renkioo/server/internal/illustration"
	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/models"
	"renkioo/server/internal/story"
)

// AnalyzeDrawingRequest represents a drawing analysis request
type AnalyzeDrawingRequest struct {
	ChildID   string `json:"child_id" validate:"omitempty,max=64"`
	ChildName string `json:"child_name" validate:"omitempty,max=64"`
	ChildAge  int    `json:"child_age" validate:"required,gte=1,lte=14"`
	ImageURL  string `json:"image_url" validate:"required,url"`
	Language  string `json:"language" validate:"omitempty,oneof=en tr"`
}

// AnalyzeDrawingResponse carries the typed analysis and, when a concern was
// flagged, the story-planning context derived from it.
type AnalyzeDrawingResponse struct {
	Success            bool                      `json:"success"`
	AnalysisID         string                    `json:"analysis_id,omitempty"`
	Analysis           *analysis.DrawingAnalysis `json:"analysis,omitempty"`
	TherapeuticContext *story.TherapeuticContext `json:"therapeutic_context,omitempty"`
	Error              string                    `json:"error,omitempty"`
}

// AnalyzeDrawing runs one drawing through the vision analyst.
func (h *Handlers) AnalyzeDrawing(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeDrawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "Drawing analysis not configured")
		return
	}

	areq := &analysis.AnalysisRequest{
		ChildName: req.ChildName,
		ChildAge:  req.ChildAge,
		ImageURL:  req.ImageURL,
		Language:  req.Language,
	}
	result, err := h.analyzer.AnalyzeDrawing(r.Context(), areq)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	analysisID := uuid.NewString()
	h.persistAnalysis(r, analysisID, &req, result)
	h.rememberDrawing(r, req.ChildID, analysisID, areq, result)

	writeJSON(w, http.StatusOK, AnalyzeDrawingResponse{
		Success:            true,
		AnalysisID:         analysisID,
		Analysis:           result,
		TherapeuticContext: analysis.TherapeuticContext(result),
	})
}

func (h *Handlers) persistAnalysis(r *http.Request, analysisID string, req *AnalyzeDrawingRequest, result *analysis.DrawingAnalysis) {
	if h.mysql == nil {
		return
	}

	rec, err := newAnalysisRecord(analysisID, req, result)
	if err != nil {
		log.Warnf("[Web] failed to serialize analysis: %v", err)
		return
	}
	if err := h.mysql.SaveAnalysis(r.Context(), rec); err != nil {
		log.Warnf("[Web] %v", err)
	}
}

// newAnalysisRecord shapes one archive row from a request and its result.
func newAnalysisRecord(analysisID string, req *AnalyzeDrawingRequest, result *analysis.DrawingAnalysis) (*models.AnalysisRecord, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	concern := ""
	if result.HasConcern() {
		concern = result.Concern
	}
	return &models.AnalysisRecord{
		ID:           analysisID,
		ChildID:      req.ChildID,
		ChildName:    req.ChildName,
		ChildAge:     req.ChildAge,
		ImageURL:     req.ImageURL,
		Summary:      result.Summary,
		Concern:      concern,
		AnalysisJSON: string(data),
	}, nil
}

func (h *Handlers) rememberDrawing(r *http.Request, childID, analysisID string, areq *analysis.AnalysisRequest, result *analysis.DrawingAnalysis) {
	if h.memories == nil || childID == "" {
		return
	}

	err := h.memories.StoreMemory(r.Context(), &interfaces.Memory{
		ChildID: childID,
		Type:    interfaces.MemoryDrawingAnalyzed,
		Content: analysis.MemorySummary(areq, result),
		Metadata: map[string]interface{}{
			"analysis_id": analysisID,
			"concern":     result.Concern,
		},
	})
	if err != nil {
		log.Warnf("[Web] failed to store drawing memory: %v", err)
	}
}

// RecentAnalysesResponse carries archived drawing analyses
type RecentAnalysesResponse struct {
	Success  bool                    `json:"success"`
	Analyses []models.AnalysisRecord `json:"analyses,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// RecentAnalyses returns the newest archived analyses, optionally filtered by
// child id or name.
func (h *Handlers) RecentAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.mysql == nil {
		writeError(w, http.StatusServiceUnavailable, "Analysis archive not available")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.mysql.RecentAnalyses(r.Context(),
		r.URL.Query().Get("child_id"), r.URL.Query().Get("child_name"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RecentAnalysesResponse{Success: true, Analyses: records})
}

// ChatResponse carries the mascot's reply
type ChatResponse struct {
	Success   bool              `json:"success"`
	Reply     string            `json:"reply,omitempty"`
	Intent    assistant.Intent  `json:"intent,omitempty"`
	Emotion   assistant.Emotion `json:"emotion,omitempty"`
	FromModel bool              `json:"from_model"`
	Error     string            `json:"error,omitempty"`
}

// Chat answers one child message through the mascot assistant.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req assistant.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "Chat assistant not configured")
		return
	}

	reply, err := h.assistant.Chat(r.Context(), &req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Success:   true,
		Reply:     reply.Reply,
		Intent:    reply.Intent,
		Emotion:   reply.Emotion,
		FromModel: reply.FromModel,
	})
}

// IllustrationRequest represents a page illustration request
type IllustrationRequest struct {
	StoryID    string `json:"story_id" validate:"omitempty,max=64"`
	SegmentID  string `json:"segment_id" validate:"omitempty,max=64"`
	PageNumber int    `json:"page_number" validate:"omitempty,gte=0"`
	Prompt     string `json:"prompt" validate:"required,max=1000"`
	Character  string `json:"character" validate:"omitempty,max=200"`
	Style      string `json:"style" validate:"omitempty,max=32"`
}

// IllustrationResponse carries a queued job id and, once finished, its result
type IllustrationResponse struct {
	Success bool                           `json:"success"`
	JobID   string                         `json:"job_id,omitempty"`
	Result  *interfaces.IllustrationResult `json:"result,omitempty"`
	Error   string                         `json:"error,omitempty"`
}

// GenerateIllustration queues one page illustration job.
func (h *Handlers) GenerateIllustration(w http.ResponseWriter, r *http.Request) {
	h.enqueueIllustration(w, r, false)
}

// GenerateColoringPage queues a printable line-art variant of a scene.
func (h *Handlers) GenerateColoringPage(w http.ResponseWriter, r *http.Request) {
	h.enqueueIllustration(w, r, true)
}

func (h *Handlers) enqueueIllustration(w http.ResponseWriter, r *http.Request, coloring bool) {
	var req IllustrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.illustrations == nil {
		writeError(w, http.StatusServiceUnavailable, "Illustration service not available")
		return
	}

	jobID, err := h.illustrations.Enqueue(r.Context(), &interfaces.IllustrationJob{
		StoryID:      req.StoryID,
		SegmentID:    req.SegmentID,
		PageNumber:   req.PageNumber,
		Prompt:       req.Prompt,
		Character:    req.Character,
		Style:        req.Style,
		ColoringPage: coloring,
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	// Cache hits complete synchronously; hand the result back right away.
	if res, done := h.illustrations.Result(jobID); done {
		writeJSON(w, http.StatusOK, IllustrationResponse{Success: true, JobID: jobID, Result: res})
		return
	}
	writeJSON(w, http.StatusAccepted, IllustrationResponse{Success: true, JobID: jobID})
}

// GetIllustration returns the finished result for a job id.
func (h *Handlers) GetIllustration(w http.ResponseWriter, r *http.Request) {
	if h.illustrations == nil {
		writeError(w, http.StatusServiceUnavailable, "Illustration service not available")
		return
	}

	jobID := chi.URLParam(r, "job_id")
	res, ok := h.illustrations.Result(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "Illustration not ready: "+jobID)
		return
	}
	if res.Error != "" {
		writeJSON(w, http.StatusOK, IllustrationResponse{Success: false, JobID: jobID, Result: res, Error: res.Error})
		return
	}
	writeJSON(w, http.StatusOK, IllustrationResponse{Success: true, JobID: jobID, Result: res})
}

// StylesResponse lists the available illustration styles
type StylesResponse struct {
	Success bool                  `json:"success"`
	Styles  []*illustration.Style `json:"styles"`
}

// GetIllustrationStyles lists the art styles a story can pick from.
func (h *Handlers) GetIllustrationStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StylesResponse{Success: true, Styles: h.styles.List()})
}

// NarrationGenerateRequest represents a read-aloud request for one page
type NarrationGenerateRequest struct {
	StoryID    string  `json:"story_id" validate:"omitempty,max=64"`
	SegmentID  string  `json:"segment_id" validate:"omitempty,max=64"`
	PageNumber int     `json:"page_number" validate:"omitempty,gte=0"`
	Text       string  `json:"text" validate:"required,max=2000"`
	Voice      string  `json:"voice" validate:"omitempty,max=32"`
	Speed      float64 `json:"speed" validate:"omitempty,gte=0.5,lte=2"`
}

// NarrationResponse carries rendered narration audio locations
type NarrationResponse struct {
	Success bool                        `json:"success"`
	Result  *interfaces.NarrationResult `json:"result,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// GenerateNarration renders (or returns cached) audio for a page of text.
func (h *Handlers) GenerateNarration(w http.ResponseWriter, r *http.Request) {
	var req NarrationGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.narration == nil {
		writeError(w, http.StatusServiceUnavailable, "Narration service not available")
		return
	}

	result, err := h.narration.Narrate(r.Context(), &interfaces.NarrationRequest{
		StoryID:    req.StoryID,
		SegmentID:  req.SegmentID,
		PageNumber: req.PageNumber,
		Text:       req.Text,
		Voice:      req.Voice,
		Speed:      req.Speed,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, NarrationResponse{Success: true, Result: result})
}
