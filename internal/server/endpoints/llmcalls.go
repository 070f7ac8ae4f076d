package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/api"
	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/svcctx"
)

const defaultLLMCallLimit = 100

// ListLLMCallsResponse is the response for listing LLM calls.
type ListLLMCallsResponse struct {
	Calls []llmcall.Call `json:"calls"`
	Count int            `json:"count"`
}

// ListLLMCallsEndpoint handles GET /api/llmcalls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List LLM calls
//	@Description	Lists recorded LLM calls, newest first
//	@Tags			llmcalls
//	@Produce		json
//	@Param			job_id		query		string	false	"Filter by job ID"
//	@Param			prompt_key	query		string	false	"Filter by prompt key"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Param			success		query		bool	false	"Filter by success"
//	@Param			after		query		string	false	"Only calls after this RFC 3339 time"
//	@Param			before		query		string	false	"Only calls before this RFC 3339 time"
//	@Param			limit		query		int		false	"Maximum results (default 100)"
//	@Param			offset		query		int		false	"Results to skip"
//	@Success		200			{object}	ListLLMCallsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/llmcalls [get]
func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "llm call store not initialized")
		return
	}

	filter, err := parseLLMCallFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calls := store.List(filter)
	writeJSON(w, http.StatusOK, ListLLMCallsResponse{
		Calls: calls,
		Count: len(calls),
	})
}

func parseLLMCallFilter(q url.Values) (llmcall.QueryFilter, error) {
	filter := llmcall.QueryFilter{
		JobID:     q.Get("job_id"),
		PromptKey: q.Get("prompt_key"),
		Provider:  q.Get("provider"),
		Model:     q.Get("model"),
		Limit:     defaultLLMCallLimit,
	}

	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("invalid success: %q", v)
		}
		filter.Success = &b
	}
	for name, dst := range map[string]**time.Time{"after": &filter.After, "before": &filter.Before} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = &t
		}
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = n
		}
	}
	return filter, nil
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var jobID, promptKey, provider string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if jobID != "" {
				q.Set("job_id", jobID)
			}
			if promptKey != "" {
				q.Set("prompt_key", promptKey)
			}
			if provider != "" {
				q.Set("provider", provider)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/llmcalls"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			client := api.NewClient(getServerURL())
			var resp ListLLMCallsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "Filter by job ID")
	cmd.Flags().StringVar(&promptKey, "prompt-key", "", "Filter by prompt key")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results")
	return cmd
}

// GetLLMCallEndpoint handles GET /api/llmcalls/{id}.
type GetLLMCallEndpoint struct{}

func (e *GetLLMCallEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/{id}", e.handler
}

func (e *GetLLMCallEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get an LLM call
//	@Tags			llmcalls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	llmcall.Call
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/llmcalls/{id} [get]
func (e *GetLLMCallEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "llm call store not initialized")
		return
	}

	call, err := store.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, llmcall.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (e *GetLLMCallEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a recorded LLM call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var call llmcall.Call
			if err := client.Get(cmd.Context(), "/api/llmcalls/"+url.PathEscape(args[0]), &call); err != nil {
				return err
			}
			return api.Output(call)
		},
	}
}

// LLMCallCountsResponse is the number of calls per prompt key for one job.
type LLMCallCountsResponse struct {
	JobID  string         `json:"job_id"`
	Counts map[string]int `json:"counts"`
}

// LLMCallCountsEndpoint handles GET /api/llmcalls/counts/{job_id}.
type LLMCallCountsEndpoint struct{}

func (e *LLMCallCountsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/counts/{job_id}", e.handler
}

func (e *LLMCallCountsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Count LLM calls by prompt key
//	@Tags			llmcalls
//	@Produce		json
//	@Param			job_id	path		string	true	"Job ID"
//	@Success		200		{object}	LLMCallCountsResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/llmcalls/counts/{job_id} [get]
func (e *LLMCallCountsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "llm call store not initialized")
		return
	}

	jobID := r.PathValue("job_id")
	writeJSON(w, http.StatusOK, LLMCallCountsResponse{
		JobID:  jobID,
		Counts: store.CountByPromptKey(jobID),
	})
}

func (e *LLMCallCountsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "counts <job-id>",
		Short: "Count a job's LLM calls by prompt key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LLMCallCountsResponse
			if err := client.Get(cmd.Context(), "/api/llmcalls/counts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			keys := make([]string, 0, len(resp.Counts))
			for k := range resp.Counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%-20s %d\n", k, resp.Counts[k])
			}
			return nil
		},
	}
}
