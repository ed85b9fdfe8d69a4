package api

import (
	"net/http"
	"strings"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/rag"
	"github.com/poiesic/codex/search"
)

type searchResponse struct {
	Query      string              `json:"query"`
	Results    []core.SearchResult `json:"results"`
	Count      int                 `json:"count"`
	SearchType core.SearchMode     `json:"search_type"`
}

type advancedSearchResponse struct {
	searchResponse
	FiltersApplied search.FiltersApplied `json:"filters_applied"`
	Reranked       int                   `json:"reranked,omitempty"`
}

func newSearchResponse(resp *search.Response) searchResponse {
	results := resp.Results
	if results == nil {
		results = []core.SearchResult{}
	}
	return searchResponse{Query: resp.Query, Results: results, Count: resp.Count(), SearchType: resp.Mode}
}

func parseQuery(r *http.Request) (search.Query, error) {
	q := r.URL.Query()
	limit, err := intParam(r, "limit", search.DefaultLimit)
	if err != nil {
		return search.Query{}, err
	}
	// The retriever treats zero as unset, so an explicit value is checked here.
	if err := core.ValidateLimit(limit); err != nil {
		return search.Query{}, err
	}
	return search.Query{
		Text:     q.Get("q"),
		Mode:     core.SearchMode(strings.ToLower(q.Get("search_type"))),
		Category: q.Get("category"),
		Limit:    limit,
	}, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, "search failed", err)
		return
	}
	resp, err := s.retriever.Search(serviceContext(r), query)
	if err != nil {
		s.writeError(w, r, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(resp))
}

func (s *Server) handleAdvancedSearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, "advanced search failed", err)
		return
	}
	aq := search.AdvancedQuery{Query: query, Jurisdiction: r.URL.Query().Get("jurisdiction")}
	if aq.YearFrom, err = intParam(r, "year_from", 0); err == nil {
		if aq.YearTo, err = intParam(r, "year_to", 0); err == nil {
			aq.Rerank, err = boolParam(r, "rerank")
		}
	}
	if err != nil {
		s.writeError(w, r, "advanced search failed", err)
		return
	}

	resp, err := s.retriever.AdvancedSearch(serviceContext(r), aq)
	if err != nil {
		s.writeError(w, r, "advanced search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, advancedSearchResponse{
		searchResponse: newSearchResponse(&resp.Response),
		FiltersApplied: resp.Filters,
		Reranked:       len(resp.Reranked),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	maxContext, err := intParam(r, "max_context_length", rag.DefaultMaxContext)
	if err == nil {
		err = core.ValidateContextLength(maxContext)
	}
	if err != nil {
		s.writeError(w, r, "question answering failed", err)
		return
	}
	detailed, err := boolParam(r, "detailed")
	if err != nil {
		s.writeError(w, r, "question answering failed", err)
		return
	}

	resp, err := s.synthesizer.Ask(serviceContext(r), rag.AskRequest{
		Question:   r.URL.Query().Get("question"),
		Detailed:   detailed,
		MaxContext: maxContext,
	})
	if err != nil {
		s.writeError(w, r, "question answering failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message string `json:"message"`
}

// handleChat accepts a JSON body or a form field named message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, "chat failed", err)
			return
		}
	} else {
		req.Message = r.FormValue("message")
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, "chat failed", badRequest("message is required"))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Message: s.synthesizer.Chat(serviceContext(r), req.Message)})
}
