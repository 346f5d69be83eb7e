package crates

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/monocrate/pkg/cache"
	"github.com/matzehuels/monocrate/pkg/integrations"
)

const (
	// DefaultIndexURL is the crates.io sparse index.
	DefaultIndexURL = "https://index.crates.io"

	// DefaultUserAgent identifies monocrate to crates.io.
	DefaultUserAgent = "monocrate (https://github.com/matzehuels/monocrate)"
)

// IndexClient reads version lists from a cargo sparse registry index.
// It is safe for concurrent use.
type IndexClient struct {
	*integrations.Client
	baseURL string
}

// NewIndexClient creates a sparse index client. An empty indexURL selects
// [DefaultIndexURL] and an empty userAgent selects [DefaultUserAgent].
func NewIndexClient(backend cache.Cache, cacheTTL time.Duration, indexURL, userAgent string) *IndexClient {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	headers := map[string]string{"User-Agent": userAgent}
	return &IndexClient{
		Client:  integrations.NewClient(backend, "index:", cacheTTL, headers),
		baseURL: strings.TrimSuffix(indexURL, "/"),
	}
}

// FetchVersions returns every version string recorded for crate.
//
// Returns [integrations.ErrNotFound] if the index has no file for the
// crate, and a parse error naming the crate and line for a malformed record.
func (c *IndexClient) FetchVersions(ctx context.Context, crate string, refresh bool) ([]string, error) {
	name := integrations.NormalizeCrateName(crate)
	if name == "" {
		return nil, errors.New("empty crate name")
	}

	var versions []string
	err := c.Cached(ctx, name, refresh, &versions, func() error {
		body, err := c.GetText(ctx, c.baseURL+"/"+IndexPath(name))
		if err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return fmt.Errorf("%w: crate %s", err, crate)
			}
			return err
		}
		versions, err = parseIndexFile(crate, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// IndexPath returns the path of a crate's file relative to the index root:
//
//	1 char:  1/{name}
//	2 chars: 2/{name}
//	3 chars: 3/{first char}/{name}
//	longer:  {chars 1-2}/{chars 3-4}/{name}
//
// The name is lowercased first.
func IndexPath(crate string) string {
	name := strings.ToLower(crate)
	switch len(name) {
	case 0:
		return ""
	case 1:
		return "1/" + name
	case 2:
		return "2/" + name
	case 3:
		return "3/" + name[:1] + "/" + name
	default:
		return name[:2] + "/" + name[2:4] + "/" + name
	}
}

type indexRecord struct {
	Name   string `json:"name"`
	Vers   string `json:"vers"`
	Yanked bool   `json:"yanked"`
}

func parseIndexFile(crate, body string) ([]string, error) {
	var versions []string
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec indexRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("crate %s: index line %d: %w", crate, line, err)
		}
		if rec.Vers == "" {
			return nil, fmt.Errorf("crate %s: index line %d: missing vers", crate, line)
		}
		versions = append(versions, rec.Vers)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("crate %s: read index: %w", crate, err)
	}
	return versions, nil
}
