package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stemloop/fairtrack/internal/imports"
	"github.com/stemloop/fairtrack/internal/logging"
)

// templateColumns is the header row offered for download, one human label
// per required logical field plus the optional ones.
var templateColumns = []string{
	"School Name", "City", "Teacher First", "Teacher Last", "Teacher Email",
	"Project Id", "Title", "Team Project", "Division", "Grade",
	"Zip", "Gender", "Release",
}

// importResponse is the success payload consumed by the dashboard toast.
type importResponse struct {
	Message       string                `json:"message"`
	RowsProcessed int                   `json:"rowsProcessed"`
	RowsRejected  int                   `json:"rowsRejected"`
	Rejected      []imports.RejectedRow `json:"rejected,omitempty"`
	Failures      []imports.RowFailure  `json:"failures,omitempty"`
}

// handleImport runs the full pipeline on an uploaded spreadsheet:
// resolve header columns, validate rows, reconcile accepted rows for the
// target year. A file with missing required columns is rejected outright;
// row-level problems are reported without blocking the other rows.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		respondError(w, r, fmt.Errorf("parse upload: %w", err), http.StatusBadRequest)
		return
	}

	year, err := strconv.Atoi(r.FormValue("year"))
	if err != nil || year < 1900 || year > 3000 {
		respondError(w, r, fmt.Errorf("invalid year %q", r.FormValue("year")), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	records, err := imports.ParseCSV(imports.SanitizeUTF8(data))
	if err != nil {
		respondError(w, r, fmt.Errorf("parse csv: %w", err), http.StatusUnprocessableEntity)
		return
	}
	if len(records) == 0 {
		respondError(w, r, errors.New("empty file"), http.StatusUnprocessableEntity)
		return
	}

	cols, missing := imports.Resolve(records[0])
	if len(missing) > 0 {
		respondError(w, r,
			fmt.Errorf("missing required columns: %s", strings.Join(missing, ", ")),
			http.StatusUnprocessableEntity)
		return
	}

	outcome := imports.ProcessRows(cols, records[1:])
	imports.CountRejected(len(outcome.Rejected))

	logger := logging.FromContext(r.Context())
	logger.Info("import started",
		"file", header.Filename,
		"year", year,
		"rows_accepted", len(outcome.Accepted),
		"rows_rejected", len(outcome.Rejected),
	)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	engine := imports.NewEngine(s.repo, imports.Options{
		SchoolKeyIncludesTown: s.cfg.Import.SchoolKeyIncludesTown,
		OneStudentPerProject:  s.cfg.Import.OneStudentPerProject,
		CategoryPlaceholder:   s.cfg.Import.CategoryPlaceholder,
	})
	summary := engine.Run(ctx, year, outcome.Accepted)

	respondJSON(w, http.StatusOK, importResponse{
		Message: fmt.Sprintf("Imported %d of %d rows for %d",
			summary.RowsProcessed, len(records)-1, year),
		RowsProcessed: summary.RowsProcessed,
		RowsRejected:  len(outcome.Rejected),
		Rejected:      outcome.Rejected,
		Failures:      summary.Failures,
	})
}

// handleTemplate serves a one-line CSV with the expected header labels.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="fairtrack-import-template.csv"`)
	fmt.Fprintln(w, strings.Join(templateColumns, ","))
}

// handleHealth pings the database pool.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pool.Ping(ctx); err != nil {
			respondError(w, r, fmt.Errorf("database ping: %w", err), http.StatusServiceUnavailable)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
