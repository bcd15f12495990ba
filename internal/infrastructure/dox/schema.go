package dox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// SchemaRegistry ensures the extraction schema exists on the remote
// service, importing the local definition and activating its first
// version when missing. The resolved id is cached in memory; schema
// identity is stable per deployment.
type SchemaRegistry struct {
	client     *Client
	schemaName string
	schemaPath string

	mu       sync.Mutex
	resolved string
}

func NewSchemaRegistry(client *Client, schemaName, schemaPath string) *SchemaRegistry {
	return &SchemaRegistry{client: client, schemaName: schemaName, schemaPath: schemaPath}
}

func (r *SchemaRegistry) SchemaID(ctx context.Context, token, clientID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != "" {
		return r.resolved, nil
	}

	id, err := r.lookup(ctx, token, clientID)
	if err != nil {
		return "", fmt.Errorf("look up schema %s: %w", r.schemaName, err)
	}
	if id == "" {
		id, err = r.provision(ctx, token, clientID)
		if err != nil {
			return "", fmt.Errorf("provision schema %s: %w", r.schemaName, err)
		}
	}
	r.resolved = id
	return id, nil
}

func (r *SchemaRegistry) lookup(ctx context.Context, token, clientID string) (string, error) {
	var response struct {
		Schemas []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"schemas"`
	}
	path := "/schemas?clientId=" + url.QueryEscape(clientID)
	if err := r.client.getJSON(ctx, token, path, &response, "list schemas"); err != nil {
		return "", err
	}
	for _, schema := range response.Schemas {
		if schema.Name == r.schemaName {
			return schema.ID, nil
		}
	}
	return "", nil
}

func (r *SchemaRegistry) provision(ctx context.Context, token, clientID string) (string, error) {
	if r.schemaPath == "" {
		return "", fmt.Errorf("no local schema definition configured")
	}
	if err := r.importDefinition(ctx, token, clientID); err != nil {
		return "", err
	}

	id, err := r.lookup(ctx, token, clientID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("schema not visible after import")
	}

	// Activation failure is tolerated: a rejected activation usually
	// means version 1 is already active.
	if err := r.activate(ctx, token, clientID, id); err != nil {
		return id, nil
	}
	return id, nil
}

func (r *SchemaRegistry) importDefinition(ctx context.Context, token, clientID string) error {
	definition, err := os.ReadFile(r.schemaPath)
	if err != nil {
		return fmt.Errorf("read schema definition: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(r.schemaPath))
	if err != nil {
		return fmt.Errorf("create schema form: %w", err)
	}
	if _, err := part.Write(definition); err != nil {
		return fmt.Errorf("write schema form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish schema form: %w", err)
	}

	path := fmt.Sprintf("/schemas/import?clientId=%s&name=%s", url.QueryEscape(clientID), url.QueryEscape(r.schemaName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.client.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create import request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("import schema: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{Operation: "import schema", StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	return nil
}

func (r *SchemaRegistry) activate(ctx context.Context, token, clientID, schemaID string) error {
	path := fmt.Sprintf("/schemas/%s/versions/1/activate?clientId=%s", url.PathEscape(schemaID), url.QueryEscape(clientID))
	return r.client.postJSON(ctx, token, path, map[string]any{}, nil, "activate schema")
}
