package server

import (
	"errors"
	"net/http"
	"strings"

	"contentops/internal/article"
	"contentops/internal/core"
	"contentops/internal/imagesearch"
	"contentops/internal/llm"
	"contentops/internal/router"
)

// ChatRequest is the body of POST /api/ai/chat
type ChatRequest struct {
	Messages []core.ChatMessage `json:"messages"`
}

// GenerateArticleRequest is the body of POST /api/ai/generate-article
type GenerateArticleRequest struct {
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Publish  bool   `json:"publish"`
}

// GenerateArticleResponse is returned by POST /api/ai/generate-article
type GenerateArticleResponse struct {
	Success  bool                   `json:"success"`
	Topic    string                 `json:"topic,omitempty"`
	Article  *core.GeneratedArticle `json:"article,omitempty"`
	PostID   string                 `json:"postId,omitempty"`
	FellBack bool                   `json:"fellBack,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// SearchTopicsRequest is the body of POST /api/ai/search-topics
type SearchTopicsRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// SearchTopicsResponse is returned by POST /api/ai/search-topics
type SearchTopicsResponse struct {
	Success bool                  `json:"success"`
	Results []core.TopicCandidate `json:"results"`
	Error   string                `json:"error,omitempty"`
}

// CoverImageRequest is the body of POST /api/ai/cover-image
type CoverImageRequest struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt,omitempty"`
}

// CoverImageResponse is returned by POST /api/ai/cover-image. Image is nil
// when no photo matched.
type CoverImageResponse struct {
	Success bool `json:"success"`
	*imagesearch.Image
	Error string `json:"error,omitempty"`
}

// handleChat handles POST /api/ai/chat. Upstream failures come back as 200
// with an error field; only malformed bodies and missing credentials do not.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.deps.Chat.Handle(r.Context(), req.Messages)
	switch {
	case errors.Is(err, router.ErrNoMessages):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, llm.ErrMissingAPIKey):
		s.log.Error("Chat requested without completion credentials", "error", err)
		s.respondError(w, http.StatusInternalServerError,
			"The AI provider API key is missing. Please check your configuration.")
		return
	case err != nil:
		s.log.Error("Chat failed", "error", err)
		reply = router.Reply{
			Message: "Something went wrong while answering. Please try again.",
			Error:   err.Error(),
		}
	}

	if reply.Action != nil && reply.Action.Type == core.ActionArticlePublished {
		if err := s.deps.Tracker.TrackArticlePublished(r.Context(), reply.Action.PostID, reply.Action.Slug, "chat"); err != nil {
			s.log.Warn("Failed to track article", "error", err)
		}
	}

	s.respondJSON(w, http.StatusOK, reply)
}

// handleGenerateArticle handles POST /api/ai/generate-article
func (s *Server) handleGenerateArticle(w http.ResponseWriter, r *http.Request) {
	if s.deps.Articles == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Article generation is not configured")
		return
	}

	var req GenerateArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	areq := article.Request{
		Topic:    strings.TrimSpace(req.Topic),
		Category: core.ParseCategory(req.Category),
	}

	run := s.deps.Articles.Generate
	if req.Publish {
		run = s.deps.Articles.Publish
	}

	result, err := run(ctx, areq)
	if err != nil {
		s.log.Error("Article generation failed", "error", err, "topic", areq.Topic, "category", areq.Category)
		msg := err.Error()
		if errors.Is(err, llm.ErrMissingAPIKey) {
			msg = "The AI provider API key is missing. Please check your configuration."
		}
		s.respondJSON(w, http.StatusInternalServerError, GenerateArticleResponse{Success: false, Error: msg})
		return
	}

	if result.PostID != "" {
		if err := s.deps.Tracker.TrackArticlePublished(ctx, result.PostID, result.Article.Slug, "api"); err != nil {
			s.log.Warn("Failed to track article", "error", err)
		}
	} else if err := s.deps.Tracker.TrackArticleGenerated(ctx, result.Article.Slug, result.FellBack); err != nil {
		s.log.Warn("Failed to track article", "error", err)
	}

	s.respondJSON(w, http.StatusOK, GenerateArticleResponse{
		Success:  true,
		Topic:    result.Topic,
		Article:  &result.Article,
		PostID:   result.PostID,
		FellBack: result.FellBack,
	})
}

// handleSearchTopics handles POST /api/ai/search-topics. A failed search is
// still a 200 with an empty result list.
func (s *Server) handleSearchTopics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Topics == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Topic search is not configured")
		return
	}

	var req SearchTopicsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.deps.Topics.Search(r.Context(), strings.TrimSpace(req.Query), core.ParseCategory(req.Category))
	if results == nil {
		results = []core.TopicCandidate{}
	}
	if err != nil {
		s.log.Warn("Topic search failed", "error", err, "query", req.Query)
		s.respondJSON(w, http.StatusOK, SearchTopicsResponse{Success: false, Results: results, Error: err.Error()})
		return
	}

	s.respondJSON(w, http.StatusOK, SearchTopicsResponse{Success: true, Results: results})
}

// handleCoverImage handles POST /api/ai/cover-image
func (s *Server) handleCoverImage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Covers == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Image search is not configured")
		return
	}

	var req CoverImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	img, err := s.deps.Covers.Find(r.Context(), title, imagesearch.EndpointPool)
	switch {
	case errors.Is(err, imagesearch.ErrNoResults):
		s.respondJSON(w, http.StatusOK, CoverImageResponse{Success: true})
	case errors.Is(err, imagesearch.ErrMissingAPIKey):
		s.log.Error("Cover image requested without image search credentials", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Image search API key is missing. Please check your configuration.")
	case err != nil:
		s.log.Error("Cover image search failed", "error", err, "title", title)
		s.respondError(w, http.StatusBadGateway, "Image search failed")
	default:
		s.respondJSON(w, http.StatusOK, CoverImageResponse{Success: true, Image: &img})
	}
}
