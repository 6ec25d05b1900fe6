package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stemloop/fairtrack/internal/config"
	"github.com/stemloop/fairtrack/internal/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Import.MaxFileSize = 1 << 20
	cfg.Import.Timeout = 30 * time.Second
	cfg.Import.OneStudentPerProject = true
	cfg.Import.CategoryPlaceholder = "Uncategorized"
	cfg.Rate.Enabled = false
	return cfg
}

func uploadRequest(t *testing.T, year, csv string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if year != "" {
		if err := mw.WriteField("year", year); err != nil {
			t.Fatal(err)
		}
	}
	if csv != "" {
		fw, err := mw.CreateFormFile("file", "upload.csv")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(csv)); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const validCSV = `School Name,City,Grade,Division,Team Project,Teacher First,Teacher Last,Teacher Email,Project Id,Title
Lincoln High,Boston,10,Senior,False,Jane,Doe,jane.doe@school.org,4821,Solar Still Efficiency
Lincoln High,Boston,11,Senior,False,Jane,Doe,jane.doe@school.org,4822,Wind Tunnel Design
`

func TestHandleImport(t *testing.T) {
	mem := store.NewMemory()
	srv := NewServer(testConfig(), mem, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "2024", validCSV))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RowsProcessed != 2 || resp.RowsRejected != 0 {
		t.Errorf("processed = %d, rejected = %d", resp.RowsProcessed, resp.RowsRejected)
	}

	if len(mem.Schools) != 1 || len(mem.Teachers) != 1 || len(mem.Projects) != 2 {
		t.Errorf("store: %d schools, %d teachers, %d projects",
			len(mem.Schools), len(mem.Teachers), len(mem.Projects))
	}
}

func TestHandleImportReportsRejectedRows(t *testing.T) {
	csv := `School Name,City,Grade,Division,Team Project,Teacher First,Teacher Last,Teacher Email,Project Id,Title
Lincoln High,boston,13,Senior,False,Jane,Doe,jane.doe@school.org,4821,Solar Still
Lincoln High,Boston,10,Senior,False,Jane,Doe,jane.doe@school.org,4822,Wind Tunnel
`
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "2024", csv))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RowsProcessed != 1 || resp.RowsRejected != 1 {
		t.Errorf("processed = %d, rejected = %d", resp.RowsProcessed, resp.RowsRejected)
	}
	if len(resp.Rejected) != 1 || resp.Rejected[0].Line != 2 {
		t.Errorf("rejected = %+v", resp.Rejected)
	}
	if len(resp.Rejected[0].Reasons) != 2 {
		t.Errorf("reasons = %v", resp.Rejected[0].Reasons)
	}
}

func TestHandleImportMissingColumns(t *testing.T) {
	csv := "Title,Grade\nSolar Still,10\n"
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "2024", csv))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "VAL001" {
		t.Errorf("code = %q", resp.Code)
	}
	if !strings.Contains(resp.Error, "schoolname") {
		t.Errorf("error does not name the missing field: %q", resp.Error)
	}
}

func TestHandleImportInvalidYear(t *testing.T) {
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	for _, year := range []string{"", "twenty24", "1776"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, uploadRequest(t, year, validCSV))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("year %q: status = %d", year, rec.Code)
		}
	}
}

func TestHandleImportNoFile(t *testing.T) {
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "2024", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "FILE002" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestHandleImportEmptyFile(t *testing.T) {
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "2024", "\n"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTemplate(t *testing.T) {
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/template", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "School Name") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleHealthWithoutPool(t *testing.T) {
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := NewServer(testConfig(), store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first requests should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other clients have their own bucket")
	}
}
