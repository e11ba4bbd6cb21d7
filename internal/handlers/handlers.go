package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/archive"
	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/service"
	"github.com/pep299/research-blog-pipeline/internal/transport/response"
)

const defaultRunsLimit = 20

type topicRequest struct {
	Topic  string `json:"topic"`
	Notify bool   `json:"notify"`
}

func decodeTopic(r *http.Request) (topicRequest, error) {
	var req topicRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	return req, err
}

// runPipelineHandler runs the full pipeline and archives the record
func (s *Server) runPipelineHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTopic(r)
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	record, err := s.runner.Run(r.Context(), req.Topic, service.Options{
		Notify:  req.Notify,
		Archive: true,
	})
	if err != nil {
		if response.StatusFor(err) >= http.StatusInternalServerError {
			s.logger.Error("Pipeline run failed", zap.String("topic", req.Topic), zap.Error(err))
		}
		response.RunError(w, err)
		return
	}

	response.Success(w, "Pipeline completed", record)
}

// researchHandler runs the research stage only
func (s *Server) researchHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTopic(r)
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	text, err := s.runner.Research(r.Context(), req.Topic)
	if err != nil {
		response.RunError(w, err)
		return
	}

	response.Success(w, "Research completed", map[string]string{
		"topic":    req.Topic,
		"research": text,
	})
}

// listRunsHandler returns archived runs, newest first
func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.runner.Runs(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		response.Internal(w, "Error listing runs")
		return
	}
	if runs == nil {
		runs = []*archive.Record{}
	}

	response.Success(w, "", runs)
}

// getRunHandler returns one archived run
func (s *Server) getRunHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(w, "Run not found")
		return
	}

	record, err := s.runner.GetRun(r.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		response.NotFound(w, "Run not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to read run", zap.String("run_id", id), zap.Error(err))
		response.Internal(w, "Error reading run")
		return
	}

	response.Success(w, "", record)
}

// cacheStatsHandler returns cache statistics
func (s *Server) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.CacheStats(r.Context())
	if err != nil {
		response.Internal(w, "Error getting cache stats")
		return
	}

	response.Success(w, "", stats)
}

// cacheClearHandler clears the cache
func (s *Server) cacheClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.ClearCache(r.Context()); err != nil {
		response.Internal(w, "Error clearing cache")
		return
	}

	response.Success(w, "Cache cleared successfully", nil)
}

// statusHandler returns system status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	// Get cache stats
	cacheStats, _ := s.cache.CacheStats(r.Context())

	response.Success(w, "", map[string]interface{}{
		"status":         "running",
		"version":        config.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"model":          s.model,
		"cache":          cacheStats,
		"notifications":  s.runner.NotificationsEnabled(),
	})
}

// configHandler returns configuration (sanitized)
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	// Return sanitized configuration without sensitive data
	response.Success(w, "", map[string]interface{}{
		"port":                 s.config.Port,
		"host":                 s.config.Host,
		"gemini_model":         s.config.GeminiModel,
		"llm_backend":          s.config.LLMBackend,
		"research_sentences":   s.config.ResearchSentences,
		"cache_type":           s.config.CacheType,
		"cache_duration_hours": s.config.CacheDuration,
		"archive_bucket":       s.config.ArchiveBucket,
		"slack_channel":        s.config.SlackChannel,
		"schedule_cron":        s.config.ScheduleCron,
		"scheduled_topics":     s.config.ScheduledTopics,
		"default_topic":        s.config.DefaultTopic,
		"auth_required":        s.config.WebhookAuthToken != "",
	})
}
