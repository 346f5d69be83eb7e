package crates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/monocrate/pkg/cache"
	"github.com/matzehuels/monocrate/pkg/integrations"
)

// DefaultAPIURL is the crates.io web API root.
const DefaultAPIURL = "https://crates.io/api/v1"

// CrateInfo holds the subset of crates.io metadata monocrate reads.
type CrateInfo struct {
	Name       string   `json:"name"`
	MaxVersion string   `json:"max_version"`
	Versions   []string `json:"versions"`
}

// APIClient provides access to the crates.io web API.
// All methods are safe for concurrent use by multiple goroutines.
type APIClient struct {
	*integrations.Client
	baseURL string
}

// NewAPIClient creates a crates.io API client. An empty apiURL selects
// [DefaultAPIURL] and an empty userAgent selects [DefaultUserAgent].
func NewAPIClient(backend cache.Cache, cacheTTL time.Duration, apiURL, userAgent string) *APIClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	headers := map[string]string{"User-Agent": userAgent}
	return &APIClient{
		Client:  integrations.NewClient(backend, "crates:", cacheTTL, headers),
		baseURL: strings.TrimSuffix(apiURL, "/"),
	}
}

// FetchCrate retrieves crate metadata including every published version.
//
// Returns [integrations.ErrNotFound] if the crate doesn't exist and
// [integrations.ErrNetwork] for HTTP failures.
func (c *APIClient) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, integrations.NormalizeCrateName(crate), refresh, &info, func() error {
		return c.fetch(ctx, crate, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchVersions returns every version string published for crate.
func (c *APIClient) FetchVersions(ctx context.Context, crate string, refresh bool) ([]string, error) {
	info, err := c.FetchCrate(ctx, crate, refresh)
	if err != nil {
		return nil, err
	}
	return info.Versions, nil
}

func (c *APIClient) fetch(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(crate)), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: crate %s", err, crate)
		}
		return err
	}

	versions := make([]string, 0, len(data.Versions))
	for _, v := range data.Versions {
		if v.Num == "" {
			return fmt.Errorf("crate %s: version entry %d has no num", crate, v.ID)
		}
		versions = append(versions, v.Num)
	}

	*info = CrateInfo{
		Name:       data.Crate.Name,
		MaxVersion: data.Crate.MaxVersion,
		Versions:   versions,
	}
	return nil
}

type crateResponse struct {
	Crate struct {
		Name       string `json:"name"`
		MaxVersion string `json:"max_version"`
	} `json:"crate"`
	Versions []struct {
		ID     int    `json:"id"`
		Num    string `json:"num"`
		Yanked bool   `json:"yanked"`
	} `json:"versions"`
}
