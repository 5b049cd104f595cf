package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/analysis"
	"renkioo/server/internal/assistant"
	"renkioo/server/internal/config"
	"renkioo/server/internal/engine"
	"renkioo/server/internal/illustration"
	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/storage"
	"renkioo/server/internal/story"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// validate is shared across handlers; the validator caches struct metadata.
var validate = validator.New()

// Services bundles everything the router serves. Engine is required; every
// other field may be nil and its endpoints then answer 503.
type Services struct {
	Engine        *engine.Engine
	Analyzer      *analysis.Analyzer
	Assistant     *assistant.Assistant
	Illustrations interfaces.IllustrationService
	Narration     interfaces.NarrationService
	Styles        *illustration.Registry
	Memories      interfaces.VectorStore
	MySQL         *storage.MySQLStore
	Redis         *storage.RedisStore
	Hub           *StoryHub
}

type Handlers struct {
	cfg           *config.Config
	engine        *engine.Engine
	analyzer      *analysis.Analyzer
	assistant     *assistant.Assistant
	illustrations interfaces.IllustrationService
	narration     interfaces.NarrationService
	styles        *illustration.Registry
	memories      interfaces.VectorStore
	mysql         *storage.MySQLStore
	hub           *StoryHub
}

func NewHandlers(cfg *config.Config, svc Services) *Handlers {
	if svc.Styles == nil {
		svc.Styles = illustration.NewRegistry()
	}
	return &Handlers{
		cfg:           cfg,
		engine:        svc.Engine,
		analyzer:      svc.Analyzer,
		assistant:     svc.Assistant,
		illustrations: svc.Illustrations,
		narration:     svc.Narration,
		styles:        svc.Styles,
		memories:      svc.Memories,
		mysql:         svc.MySQL,
		hub:           svc.Hub,
	}
}

// writeJSON writes one JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("[Web] failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// statusForError maps service errors onto HTTP status codes: unknown ids are
// the client's fault, parse failures are the model's, exhausted retries mean
// the backend is down.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrStoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownChoicePoint), errors.Is(err, engine.ErrUnknownOption):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrGenerationParse):
		return http.StatusBadGateway
	case errors.Is(err, llm.ErrRetryExhausted), errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Request logging middleware
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Infof("[Web] %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func NewRouter(cfg *config.Config, svc Services) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(corsMiddleware)

	handlers := NewHandlers(cfg, svc)
	storyHandlers := NewStoryHandlers(svc)

	r.Get("/health", handlers.HealthCheck)
	r.Get("/ws", handlers.StoryStream)

	// Static file server for generated assets (illustrations, narration)
	if cfg.Assets.Dir != "" {
		fs := http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.Assets.Dir)))
		r.Mount("/assets", fs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/story", func(r chi.Router) {
			r.Post("/create", storyHandlers.CreateStory)
			r.Post("/advance", storyHandlers.AdvanceStory)
			r.Get("/{story_id}", storyHandlers.GetStory)
			r.Get("/{story_id}/segment/{segment_id}", storyHandlers.GetSegment)
			r.Get("/{story_id}/choices", storyHandlers.GetStoryChoices)
			r.Post("/{story_id}/end", storyHandlers.EndStory)
		})
		r.Get("/stories", storyHandlers.ListStories)

		r.Route("/traits", func(r chi.Router) {
			r.Get("/", handlers.GetTraits)
			r.Get("/{trait}", handlers.GetTrait)
		})

		r.Post("/analysis/drawing", handlers.AnalyzeDrawing)
		r.Get("/analysis/recent", handlers.RecentAnalyses)
		r.Post("/chat", handlers.Chat)

		r.Route("/illustration", func(r chi.Router) {
			r.Post("/generate", handlers.GenerateIllustration)
			r.Get("/styles", handlers.GetIllustrationStyles)
			r.Get("/{job_id}", handlers.GetIllustration)
		})
		r.Post("/coloring/generate", handlers.GenerateColoringPage)

		r.Post("/narration/generate", handlers.GenerateNarration)
	})

	return r
}

type healthResponse struct {
	Status        string                      `json:"status"`
	Service       string                      `json:"service"`
	Stats         engine.Stats                `json:"stats"`
	WSClients     int                         `json:"ws_clients"`
	MySQL         bool                        `json:"mysql"`
	Memories      bool                        `json:"memories"`
	Illustrations *interfaces.GeneratorStatus `json:"illustrations,omitempty"`
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Service:  "renkioo",
		MySQL:    h.mysql != nil,
		Memories: h.memories != nil,
	}
	if h.engine != nil {
		resp.Stats = h.engine.Stats()
	}
	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}
	if h.illustrations != nil {
		resp.Illustrations = h.illustrations.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

// StoryStream upgrades the connection and subscribes it to story events. An
// optional story_id query parameter narrows the stream to one story.
func (h *Handlers) StoryStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Event hub not initialized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		ID:      generateClientID(),
		StoryID: r.URL.Query().Get("story_id"),
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Hub:     h.hub,
	}

	h.hub.register <- client

	welcome, _ := json.Marshal(map[string]interface{}{
		"type":     "connected",
		"id":       client.ID,
		"story_id": client.StoryID,
		"time":     time.Now().Unix(),
	})
	select {
	case client.Send <- welcome:
	default:
	}

	go client.readPump()
}

type traitsResponse struct {
	Success bool              `json:"success"`
	Traits  []story.TraitInfo `json:"traits,omitempty"`
	Trait   *story.TraitInfo  `json:"trait,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// GetTraits lists the full trait set with presentation records.
func (h *Handlers) GetTraits(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	writeJSON(w, http.StatusOK, traitsResponse{
		Success: true,
		Traits:  story.AllTraitInfo(language),
	})
}

// GetTrait returns the presentation record for one trait.
func (h *Handlers) GetTrait(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trait")
	language := r.URL.Query().Get("language")

	info, ok := story.LookupTrait(story.Trait(id), language)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown trait: "+id)
		return
	}
	writeJSON(w, http.StatusOK, traitsResponse{Success: true, Trait: &info})
}

// generateClientID generates a unique client ID
func generateClientID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}
