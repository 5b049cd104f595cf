package illustration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
)

const (
	queueCapacity  = 100
	defaultWorkers = 2

	pageSize     = "1024x1024"
	coloringSize = "1024x1792" // portrait, prints onto A4 without cropping

	assetKind = "illustration"
)

type queuedJob struct {
	id     string
	job    *interfaces.IllustrationJob
	prompt string
	key    string
}

// Service renders page illustrations through a worker queue with a disk
// cache in front of the image model. It implements
// interfaces.IllustrationService.
type Service struct {
	model   llm.ImageModel
	styles  *Registry
	cache   *Cache
	prompts *prompts.Engine
	index   interfaces.AssetIndex
	events  interfaces.EventPublisher
	urlBase string

	jobs    chan *queuedJob
	results map[string]*interfaces.IllustrationResult
	mu      sync.RWMutex

	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Bool
}

// NewService creates the illustration service. events may be nil; finished
// jobs are then only visible through Result.
func NewService(model llm.ImageModel, styles *Registry, cache *Cache, engine *prompts.Engine, events interfaces.EventPublisher, urlBase string) *Service {
	return &Service{
		model:   model,
		styles:  styles,
		cache:   cache,
		prompts: engine,
		events:  events,
		urlBase: urlBase,
		jobs:    make(chan *queuedJob, queueCapacity),
		results: make(map[string]*interfaces.IllustrationResult),
	}
}

// UseAssetIndex attaches a shared key-to-path index. Finished illustrations
// are recorded there, so a restarted process resolves them without
// re-rendering.
func (s *Service) UseAssetIndex(index interfaces.AssetIndex) {
	s.index = index
}

// Start launches the worker pool. Workers stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	s.running.Store(true)
	for i := 0; i < workers; i++ {
		go s.worker(ctx)
	}
	log.Infof("[Illustration] started %d workers", workers)
}

// Stop marks the service unavailable. In-flight jobs finish; new Enqueue
// calls are rejected.
func (s *Service) Stop() {
	s.running.Store(false)
}

// Enqueue schedules one page illustration. Cache hits complete immediately
// without occupying a worker.
func (s *Service) Enqueue(ctx context.Context, job *interfaces.IllustrationJob) (string, error) {
	if job.Prompt == "" {
		return "", fmt.Errorf("illustration job has no prompt")
	}
	if !s.running.Load() {
		return "", fmt.Errorf("illustration service is not running")
	}

	style := s.styles.Get(job.Style)
	job.Style = style.ID

	prompt, err := s.buildPrompt(job, style)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	key := CacheKey(prompt, style.ID, job.ColoringPage)
	if path, ok := s.cache.Get(key); ok {
		s.storeResult(&interfaces.IllustrationResult{
			JobID:     id,
			ImagePath: path,
			ImageURL:  s.publicURL(path),
			Cached:    true,
		})
		s.publishReady(job, id, s.publicURL(path), true)
		return id, nil
	}
	if path := s.indexedPath(ctx, key); path != "" {
		s.storeResult(&interfaces.IllustrationResult{
			JobID:     id,
			ImagePath: path,
			ImageURL:  s.publicURL(path),
			Cached:    true,
		})
		s.publishReady(job, id, s.publicURL(path), true)
		return id, nil
	}

	select {
	case s.jobs <- &queuedJob{id: id, job: job, prompt: prompt, key: key}:
		return id, nil
	default:
		return "", fmt.Errorf("illustration queue is full")
	}
}

// Result returns the finished result for a job id, if done.
func (s *Service) Result(jobID string) (*interfaces.IllustrationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[jobID]
	return res, ok
}

// Status returns the current queue status.
func (s *Service) Status() *interfaces.GeneratorStatus {
	return &interfaces.GeneratorStatus{
		Available: s.running.Load(),
		QueueSize: len(s.jobs),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case qj, ok := <-s.jobs:
			if !ok {
				return
			}
			s.process(ctx, qj)
		}
	}
}

func (s *Service) process(ctx context.Context, qj *queuedJob) {
	size := pageSize
	if qj.job.ColoringPage {
		size = coloringSize
	}

	start := time.Now()
	data, err := s.model.Image(ctx, llm.ImageRequest{Prompt: qj.prompt, Size: size})
	elapsed := time.Since(start)

	if err != nil {
		s.failed.Inc()
		log.Warnf("[Illustration] job %s failed after %s: %v", qj.id, elapsed.Round(time.Millisecond), err)
		s.storeResult(&interfaces.IllustrationResult{
			JobID:          qj.id,
			GenerationTime: elapsed.Milliseconds(),
			Error:          err.Error(),
		})
		return
	}

	path, err := s.cache.Put(qj.key, data, qj.prompt, qj.job.Style, qj.job.ColoringPage)
	if err != nil {
		s.failed.Inc()
		s.storeResult(&interfaces.IllustrationResult{
			JobID:          qj.id,
			GenerationTime: elapsed.Milliseconds(),
			Error:          err.Error(),
		})
		return
	}

	if s.index != nil {
		if ierr := s.index.SetAssetPath(ctx, assetKind, qj.key, path); ierr != nil {
			log.Warnf("[Illustration] failed to index %s: %v", qj.key, ierr)
		}
	}

	s.completed.Inc()
	url := s.publicURL(path)
	s.storeResult(&interfaces.IllustrationResult{
		JobID:          qj.id,
		ImagePath:      path,
		ImageURL:       url,
		GenerationTime: elapsed.Milliseconds(),
	})
	s.publishReady(qj.job, qj.id, url, false)
	log.Infof("[Illustration] job %s done in %s (%s, page %d)",
		qj.id, elapsed.Round(time.Millisecond), qj.job.SegmentID, qj.job.PageNumber)
}

// indexedPath resolves a cache key through the shared index. The file has to
// still be on disk; a stale index entry is not a hit.
func (s *Service) indexedPath(ctx context.Context, key string) string {
	if s.index == nil {
		return ""
	}
	path, err := s.index.GetAssetPath(ctx, assetKind, key)
	if err != nil {
		log.Warnf("[Illustration] asset index lookup failed for %s: %v", key, err)
		return ""
	}
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (s *Service) buildPrompt(job *interfaces.IllustrationJob, style *Style) (string, error) {
	character := job.Character
	if character == "" {
		character = "the story's main character"
	}

	if job.ColoringPage {
		return s.prompts.Render(prompts.TmplColoringPage, map[string]string{
			"scene":     job.Prompt,
			"character": character,
		})
	}
	return s.prompts.Render(prompts.TmplIllustration, map[string]string{
		"style_fragment": style.PromptFragment,
		"scene":          job.Prompt,
		"character":      character,
	})
}

func (s *Service) storeResult(res *interfaces.IllustrationResult) {
	s.mu.Lock()
	s.results[res.JobID] = res
	s.mu.Unlock()
}

func (s *Service) publicURL(path string) string {
	if s.urlBase == "" {
		return ""
	}
	return s.urlBase + "/" + filepath.Base(path)
}

func (s *Service) publishReady(job *interfaces.IllustrationJob, jobID, url string, cached bool) {
	if s.events == nil {
		return
	}
	s.events.Publish(interfaces.NewStoryEvent(interfaces.EventIllustrationReady, job.StoryID, map[string]interface{}{
		"job_id":        jobID,
		"segment_id":    job.SegmentID,
		"page_number":   job.PageNumber,
		"image_url":     url,
		"coloring_page": job.ColoringPage,
		"cached":        cached,
	}))
}
