package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/httputil"
	"github.com/geopulse-data/geopulse/internal/raster"
)

// defaultFetchTimeout bounds a bundle fetch end to end. Source faults
// are deterministic from the pipeline's point of view, so there are no
// retries; a dead provider fails the run.
const defaultFetchTimeout = 60 * time.Second

// RemoteSource fetches a layer bundle over HTTP from an export
// endpoint. The client is an interface so tests can serve canned
// bundles without a network.
type RemoteSource struct {
	URL    string
	Client httputil.HTTPClient
}

// NewRemoteSource creates a source fetching the given bundle URL. A nil
// client gets a standard client with the default fetch timeout.
func NewRemoteSource(url string, client httputil.HTTPClient) *RemoteSource {
	if client == nil {
		client = httputil.NewStandardClient(&http.Client{Timeout: defaultFetchTimeout})
	}
	return &RemoteSource{URL: url, Client: client}
}

// Load fetches the bundle and validates it against the requested
// region.
func (s *RemoteSource) Load(ctx context.Context, region config.Region) (raster.LayerSet, []LayerProvenance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build bundle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch bundle from %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("bundle fetch from %s returned status %d", s.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read bundle response: %w", err)
	}
	if len(data) > maxBundleBytes {
		return nil, nil, fmt.Errorf("bundle response from %s exceeds %d bytes", s.URL, maxBundleBytes)
	}

	bundle, err := ParseBundle(data)
	if err != nil {
		return nil, nil, err
	}
	ls, err := bundle.layerSet(region)
	if err != nil {
		return nil, nil, err
	}
	return ls, Provenance(ls, "remote:"+s.URL), nil
}
