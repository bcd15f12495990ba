package dox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/core/ports"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/resilience"
)

// RequestRecorder observes one remote call for metrics.
type RequestRecorder interface {
	ObserveRequest(operation, outcome string, took time.Duration)
}

// Client is the low-level transport for the document extraction service.
// Higher-level concerns (tokens, client identity, schemas, submissions)
// are separate types sharing this client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	recorder   RequestRecorder
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		// The service throttles aggressive tenants, so outbound calls
		// are paced below the documented request quota.
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		executor: resilience.NewExecutor(resilience.ExtractionPolicy()),
	}
}

// WithMetrics attaches a request recorder to the transport.
func (c *Client) WithMetrics(recorder RequestRecorder) *Client {
	c.recorder = recorder
	return c
}

// ExtractionService submits chunk documents for extraction and reads
// their lifecycle back.
type ExtractionService struct {
	client *Client
}

func NewExtractionService(client *Client) *ExtractionService {
	return &ExtractionService{client: client}
}

type submitOptions struct {
	ClientID     string `json:"clientId"`
	DocumentType string `json:"documentType"`
	ReceivedDate string `json:"receivedDate"`
	SchemaID     string `json:"schemaId,omitempty"`
	SchemaName   string `json:"schemaName,omitempty"`
}

func (s *ExtractionService) Submit(ctx context.Context, token, clientID string, schema ports.SchemaRef, filename string, payload []byte) (string, error) {
	options := submitOptions{
		ClientID:     clientID,
		DocumentType: "custom",
		ReceivedDate: time.Now().UTC().Format("2006-01-02"),
	}
	if schema.ID != "" {
		options.SchemaID = schema.ID
	} else {
		options.SchemaName = schema.Name
	}

	var response struct {
		ID string `json:"id"`
	}
	err := s.client.call(ctx, "submit", func(ctx context.Context) error {
		return s.client.postMultipart(ctx, token, "/document/jobs", filename, payload, options, &response, "submit")
	})
	if err != nil {
		return "", submissionError("submit document", err)
	}
	return response.ID, nil
}

func (s *ExtractionService) Status(ctx context.Context, token, remoteJobID string) (string, error) {
	var response struct {
		Status string `json:"status"`
	}
	err := s.client.call(ctx, "status", func(ctx context.Context) error {
		return s.client.getJSON(ctx, token, "/document/jobs/"+url.PathEscape(remoteJobID), &response, "status")
	})
	if err != nil {
		return "", pollError("poll job", err)
	}
	return response.Status, nil
}

func (s *ExtractionService) Result(ctx context.Context, token, remoteJobID string) ([]domain.ExtractedField, error) {
	var response struct {
		Status     string `json:"status"`
		Extraction struct {
			HeaderFields []struct {
				Name       string  `json:"name"`
				RawValue   any     `json:"value"`
				Confidence float64 `json:"confidence"`
			} `json:"headerFields"`
		} `json:"extraction"`
	}
	path := "/document/jobs/" + url.PathEscape(remoteJobID) + "?extractedValues=true"
	err := s.client.call(ctx, "result", func(ctx context.Context) error {
		return s.client.getJSON(ctx, token, path, &response, "result")
	})
	if err != nil {
		return nil, pollError("fetch extraction", err)
	}

	fields := make([]domain.ExtractedField, 0, len(response.Extraction.HeaderFields))
	for _, hf := range response.Extraction.HeaderFields {
		fields = append(fields, domain.ExtractedField{
			Name:       hf.Name,
			Value:      stringifyValue(hf.RawValue),
			Confidence: hf.Confidence,
		})
	}
	return fields, nil
}

// call paces the request, then runs it under the shared breaker.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := c.executor.Execute(ctx, operation, fn, classifyDOXError)
	if c.recorder != nil {
		c.recorder.ObserveRequest(operation, outcomeLabel(err), time.Since(start))
	}
	return err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("http_%d", statusErr.StatusCode)
	}
	return "transport"
}
