package dox

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// ClientRegistry resolves the extraction client on the remote service,
// creating it on first use. The resolved id is cached for the process
// lifetime: client identity is stable per deployment.
type ClientRegistry struct {
	client     *Client
	clientName string

	mu       sync.Mutex
	resolved string
}

func NewClientRegistry(client *Client, clientName string) *ClientRegistry {
	return &ClientRegistry{client: client, clientName: clientName}
}

func (r *ClientRegistry) ClientID(ctx context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != "" {
		return r.resolved, nil
	}

	id, lookupErr := r.lookup(ctx, token)
	if lookupErr == nil && id != "" {
		r.resolved = id
		return id, nil
	}

	// A failed or empty listing still leaves creation as a path to a
	// usable client; provisioning fails only when both do.
	id, createErr := r.create(ctx, token)
	if createErr != nil {
		if lookupErr != nil {
			createErr = fmt.Errorf("%w (lookup: %v)", createErr, lookupErr)
		}
		return "", domain.WrapError(domain.ErrClientProvisioning, "provision client", createErr)
	}
	r.resolved = id
	return id, nil
}

func (r *ClientRegistry) lookup(ctx context.Context, token string) (string, error) {
	var response struct {
		Payload []struct {
			ClientID string `json:"clientId"`
		} `json:"payload"`
	}
	if err := r.client.getJSON(ctx, token, "/clients?limit=10", &response, "list clients"); err != nil {
		return "", err
	}
	for _, entry := range response.Payload {
		if entry.ClientID == r.clientName {
			return entry.ClientID, nil
		}
	}
	// Any pre-provisioned client is usable for this tenant.
	if len(response.Payload) > 0 {
		return response.Payload[0].ClientID, nil
	}
	return "", nil
}

func (r *ClientRegistry) create(ctx context.Context, token string) (string, error) {
	request := map[string]any{
		"value": []map[string]string{
			{"clientId": r.clientName, "clientName": r.clientName},
		},
	}
	if err := r.client.postJSON(ctx, token, "/clients", request, nil, "create client"); err != nil {
		return "", err
	}

	// The listing may lag or stay unavailable after creation; the id we
	// just posted is usable either way.
	if id, err := r.lookup(ctx, token); err == nil && id != "" {
		return id, nil
	}
	return r.clientName, nil
}
