package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/api"
	"github.com/jackzampolin/digest/internal/ingest"
	"github.com/jackzampolin/digest/internal/jobs"
	"github.com/jackzampolin/digest/internal/svcctx"
)

// CreateSummaryEndpoint handles POST /api/summaries.
type CreateSummaryEndpoint struct{}

func (e *CreateSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/summaries", e.handler
}

func (e *CreateSummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start a summarization job
//	@Description	Summarizes the given chapters in order until the stop target is reached
//	@Tags			summaries
//	@Accept			json
//	@Produce		json
//	@Param			request	body		jobs.Request	true	"Chapters and options"
//	@Success		202		{object}	jobs.Record
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/summaries [post]
func (e *CreateSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	var req jobs.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := jm.Create(req)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrInvalidRequest), errors.Is(err, jobs.ErrUnknownProvider):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, jobs.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, rec)
}

func (e *CreateSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file, until, provider, model, strategy string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a summarization job on the server",
		Long: `Reads a local book (EPUB or plain text), sends its chapters
to the server, and prints the queued job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			doc, err := ingest.Open(file)
			if err != nil {
				return err
			}
			req := jobs.Request{
				Title:           doc.Title,
				Chapters:        doc.Chapters,
				TOC:             doc.TOC,
				StopTarget:      until,
				Provider:        provider,
				Model:           model,
				ContextStrategy: strategy,
			}
			client := api.NewClient(getServerURL())
			var rec jobs.Record
			if err := client.Post(cmd.Context(), "/api/summaries", req, &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Book to summarize (required)")
	cmd.Flags().StringVar(&until, "until", "", "Stop after the chapter with this title")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (server default when empty)")
	cmd.Flags().StringVar(&model, "model", "", "Model override")
	cmd.Flags().StringVar(&strategy, "context-strategy", "", "Context strategy: replace or accumulate")
	return cmd
}

// ListSummariesResponse is the response for listing jobs.
type ListSummariesResponse struct {
	Summaries []*jobs.Record `json:"summaries"`
	Total     int            `json:"total"`
}

// ListSummariesEndpoint handles GET /api/summaries.
type ListSummariesEndpoint struct{}

func (e *ListSummariesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/summaries", e.handler
}

func (e *ListSummariesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List summarization jobs
//	@Description	Lists jobs newest first; chapter summaries and results are omitted
//	@Tags			summaries
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Param			limit	query		int		false	"Maximum number of jobs"
//	@Success		200		{object}	ListSummariesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/summaries [get]
func (e *ListSummariesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	filter := jobs.ListFilter{Status: jobs.Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	records := jm.List(filter)
	for _, rec := range records {
		rec.Chapters = nil
		rec.Result = ""
	}

	writeJSON(w, http.StatusOK, ListSummariesResponse{
		Summaries: records,
		Total:     len(records),
	})
}

func (e *ListSummariesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List summarization jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/summaries"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			client := api.NewClient(getServerURL())
			var resp ListSummariesResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (queued, running, completed, failed, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs")
	return cmd
}

// GetSummaryEndpoint handles GET /api/summaries/{id}.
type GetSummaryEndpoint struct{}

func (e *GetSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/summaries/{id}", e.handler
}

func (e *GetSummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a summarization job
//	@Description	Returns progress, per-chapter summaries, and the rendered result so far
//	@Tags			summaries
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	jobs.Record
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/summaries/{id} [get]
func (e *GetSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	rec, err := jm.Get(r.PathValue("id"))
	if err != nil {
		writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (e *GetSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var resultOnly bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a summarization job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec jobs.Record
			if err := client.Get(cmd.Context(), "/api/summaries/"+url.PathEscape(args[0]), &rec); err != nil {
				return err
			}
			if resultOnly {
				fmt.Fprintln(cmd.OutOrStdout(), rec.Result)
				return nil
			}
			return api.Output(rec)
		},
	}
	cmd.Flags().BoolVar(&resultOnly, "result", false, "Print only the rendered summary")
	return cmd
}

// CancelSummaryEndpoint handles POST /api/summaries/{id}/cancel.
type CancelSummaryEndpoint struct{}

func (e *CancelSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/summaries/{id}/cancel", e.handler
}

func (e *CancelSummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel a summarization job
//	@Description	Requests cancellation; chapters already summarized are kept
//	@Tags			summaries
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	jobs.Record
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/summaries/{id}/cancel [post]
func (e *CancelSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	rec, err := jm.Cancel(r.PathValue("id"))
	if err != nil {
		writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (e *CancelSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a summarization job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec jobs.Record
			if err := client.Post(cmd.Context(), "/api/summaries/"+url.PathEscape(args[0])+"/cancel", nil, &rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for %s (status: %s)\n", rec.ID, rec.Status)
			return nil
		},
	}
}

func writeJobError(w http.ResponseWriter, err error) {
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
