package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/api"
	"github.com/jackzampolin/digest/internal/ingest"
	"github.com/jackzampolin/digest/internal/svcctx"
)

// multipartOverhead is allowed on top of MaxUploadSize for form boundaries and headers.
const multipartOverhead = 1 << 20

// ConvertEndpoint handles POST /api/convert.
type ConvertEndpoint struct{}

func (e *ConvertEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/convert", e.handler
}

func (e *ConvertEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Convert an EPUB
//	@Description	Extracts the title, chapter texts, and table of contents from an uploaded EPUB
//	@Tags			convert
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"EPUB file (max 10 MiB)"
//	@Success		200		{object}	ingest.Document
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/convert [post]
func (e *ConvertEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	logger := svcctx.LoggerFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(ingest.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 10 MiB limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(fh.Filename), ".epub") {
		writeError(w, http.StatusBadRequest, "only .epub files are supported")
		return
	}
	if fh.Size > ingest.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 10 MiB limit")
		return
	}

	doc, err := ingest.ReadEPUB(file, fh.Size)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidEPUB) || errors.Is(err, ingest.ErrNoChapters) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Error("epub conversion failed", "file", fh.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc.Title == "" {
		doc.Title = ingest.TitleFromPath(fh.Filename)
	}

	logger.Info("converted epub",
		"file", fh.Filename,
		"title", doc.Title,
		"chapters", len(doc.Chapters))

	writeJSON(w, http.StatusOK, doc)
}

func (e *ConvertEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <file.epub>",
		Short: "Upload an EPUB and print its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc ingest.Document
			if err := client.Upload(cmd.Context(), "/api/convert", "file", args[0], &doc); err != nil {
				return fmt.Errorf("convert %s: %w", args[0], err)
			}
			return api.Output(doc)
		},
	}
}
