package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

type intakeFake struct {
	gotFilename string
	gotOptions  domain.JobOptions
	err         error
}

func (f *intakeFake) Accept(_ context.Context, filename string, body io.Reader, options domain.JobOptions) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	f.gotFilename = filename
	f.gotOptions = options
	return domain.NewJob("job-1", filename, options), nil
}

type readerFake struct {
	job *domain.Job
	err error
}

func (f readerFake) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.job == nil || f.job.ID != jobID {
		return nil, domain.WrapError(domain.ErrJobNotFound, "job store", fmt.Errorf("job %s", jobID))
	}
	return f.job, nil
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := NewRouter(&intakeFake{}, readerFake{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestCreateValidationAccepted(t *testing.T) {
	intake := &intakeFake{}
	handler := NewRouter(intake, readerFake{}).Handler()

	body, contentType := multipartUpload(t, "noc.pdf", []byte("%PDF-1.7"), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/validations", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["job_id"] != "job-1" || resp["status"] != "queued" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if intake.gotFilename != "noc.pdf" {
		t.Errorf("filename = %q", intake.gotFilename)
	}
	if intake.gotOptions.Approximation || !intake.gotOptions.Validation {
		t.Errorf("default options = %+v, want validation on, approximation off", intake.gotOptions)
	}
}

func TestCreateValidationParsesOptionFlags(t *testing.T) {
	intake := &intakeFake{}
	handler := NewRouter(intake, readerFake{}).Handler()

	body, contentType := multipartUpload(t, "noc.pdf", []byte("%PDF-1.7"), map[string]string{
		"approximation": "true",
		"validation":    "false",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/validations", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if !intake.gotOptions.Approximation || intake.gotOptions.Validation {
		t.Errorf("options = %+v", intake.gotOptions)
	}
}

func TestCreateValidationMissingFile(t *testing.T) {
	handler := NewRouter(&intakeFake{}, readerFake{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/validations", bytes.NewBufferString("plain"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateValidationErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			"invalid input",
			domain.WrapError(domain.ErrInvalidInput, "accept", errors.New("empty upload")),
			http.StatusBadRequest,
			"InvalidInputError",
		},
		{
			"malformed document",
			domain.WrapError(domain.ErrMalformedDocument, "accept", errors.New("no pdf header")),
			http.StatusUnprocessableEntity,
			"MalformedDocumentError",
		},
		{
			"queue outage",
			domain.WrapError(domain.ErrTemporary, "accept", errors.New("nats down")),
			http.StatusServiceUnavailable,
			"TemporaryError",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(&intakeFake{err: tc.err}, readerFake{}).Handler()

			body, contentType := multipartUpload(t, "noc.pdf", []byte("x"), nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/validations", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", res.Code, tc.wantStatus)
			}
			var resp map[string]string
			if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp["error_kind"] != tc.wantKind {
				t.Errorf("error_kind = %q, want %q", resp["error_kind"], tc.wantKind)
			}
		})
	}
}

func TestGetValidationReturnsJob(t *testing.T) {
	job := domain.NewJob("job-7", "noc.pdf", domain.JobOptions{})
	job.Confidence = 0.91
	job.Disposition = domain.DispositionApproved
	handler := NewRouter(&intakeFake{}, readerFake{job: job}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/validations/job-7", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] != "job-7" || resp["disposition"] != "Approved" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetValidationUnknownJob(t *testing.T) {
	handler := NewRouter(&intakeFake{}, readerFake{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/validations/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetValidationRequiresID(t *testing.T) {
	handler := NewRouter(&intakeFake{}, readerFake{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/validations/", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRequestIDHeaderPropagated(t *testing.T) {
	handler := NewRouter(&intakeFake{}, readerFake{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Errorf("request id header = %q", got)
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	handler := NewRouter(&intakeFake{}, readerFake{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Header().Get(requestIDHeader) == "" {
		t.Error("no request id header generated")
	}
}
