package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultSnapshotURL is the public Bitnodes endpoint for the latest
// reachable-nodes snapshot.
const DefaultSnapshotURL = "https://bitnodes.io/api/v1/snapshots/latest/"

// nodesField is the top-level key holding the peer map.
const nodesField = "nodes"

// FetchError reports a non-success HTTP status from the snapshot endpoint.
type FetchError struct {
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("snapshot request failed with status %d", e.Status)
}

// SchemaError reports a response body missing an expected field.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("snapshot response missing %q field", e.Field)
}

// ParseError reports a body that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("snapshot response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Fetcher retrieves one snapshot per call. No retries: a failed load stays
// failed until the next page load or refresh trigger.
type Fetcher struct {
	URL    string
	Client *http.Client
}

// NewFetcher builds a fetcher for the given endpoint, defaulting to the
// public Bitnodes URL.
func NewFetcher(url string) *Fetcher {
	if url == "" {
		url = DefaultSnapshotURL
	}
	return &Fetcher{URL: url, Client: &http.Client{}}
}

// Fetch issues a single GET and returns the raw peer map. Errors are typed:
// *FetchError for a bad status, *ParseError for malformed JSON and
// *SchemaError when the peer-map field is absent.
func (f *Fetcher) Fetch(ctx context.Context) (map[string][]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Status: resp.StatusCode}
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ParseError{Err: err}
	}

	rawNodes, ok := body[nodesField]
	if !ok {
		return nil, &SchemaError{Field: nodesField}
	}

	var peers map[string][]json.RawMessage
	if err := json.Unmarshal(rawNodes, &peers); err != nil {
		return nil, &ParseError{Err: err}
	}
	return peers, nil
}
