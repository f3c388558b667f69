// Package refdata fetches jurisdiction and district reference data from the
// Represent directory API. It is a best-effort enrichment feed: any upstream
// failure degrades to an empty result with a warning, never an error.
package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/store"
)

// DefaultBaseURL is the public Represent API endpoint.
const DefaultBaseURL = "https://represent.opennorth.ca"

// Client talks to the directory API.
type Client struct {
	http   *resty.Client
	base   string
	logger *zap.Logger
	now    func() time.Time
}

// New builds a Client against baseURL (DefaultBaseURL when empty).
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		base:   strings.TrimRight(baseURL, "/"),
		logger: logger,
		now:    time.Now,
	}
}

type boundarySetList struct {
	Objects []struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
		URL    string `json:"url"`
	} `json:"objects"`
}

type boundaryList struct {
	Objects []struct {
		Name       string `json:"name"`
		ExternalID string `json:"external_id"`
		URL        string `json:"url"`
	} `json:"objects"`
}

// Jurisdictions fetches up to limit jurisdiction records from the directory's
// boundary-set index.
func (c *Client) Jurisdictions(ctx context.Context, limit int) []store.ReferenceJurisdiction {
	var list boundarySetList
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&list).
		Get("/boundary-sets/")
	if err != nil || resp.IsError() {
		c.warnUpstream("boundary-sets", resp, err)
		return nil
	}

	scrapedAt := c.now().UTC()
	out := make([]store.ReferenceJurisdiction, 0, len(list.Objects))
	for _, obj := range list.Objects {
		slug := slugFromURL(obj.URL)
		if slug == "" {
			continue
		}
		out = append(out, store.ReferenceJurisdiction{
			Slug:      slug,
			Name:      obj.Name,
			Level:     levelFromDomain(obj.Domain),
			Province:  provinceFromDomain(obj.Domain),
			SourceURL: c.base + obj.URL,
			ScrapedAt: scrapedAt,
		})
	}
	return out
}

// Districts fetches up to limit district records from one boundary set.
func (c *Client) Districts(ctx context.Context, boundarySet string, limit int) []store.ReferenceDistrict {
	var list boundaryList
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&list).
		Get("/boundaries/" + boundarySet + "/")
	if err != nil || resp.IsError() {
		c.warnUpstream("boundaries/"+boundarySet, resp, err)
		return nil
	}

	scrapedAt := c.now().UTC()
	out := make([]store.ReferenceDistrict, 0, len(list.Objects))
	for _, obj := range list.Objects {
		out = append(out, store.ReferenceDistrict{
			ExternalID:  obj.ExternalID,
			Name:        obj.Name,
			BoundarySet: boundarySet,
			SourceURL:   c.base + obj.URL,
			ScrapedAt:   scrapedAt,
		})
	}
	return out
}

func (c *Client) warnUpstream(resource string, resp *resty.Response, err error) {
	fields := []zap.Field{zap.String("resource", resource)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else if resp != nil {
		fields = append(fields, zap.Int("status", resp.StatusCode()))
	}
	c.logger.Warn("reference upstream unavailable, skipping enrichment", fields...)
}

// slugFromURL extracts the trailing path segment of a directory resource URL.
func slugFromURL(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}

// levelFromDomain classifies a directory domain string like "Toronto, ON"
// (municipal), "ON" (provincial), or "Canada" (federal).
func levelFromDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	switch {
	case domain == "" || strings.EqualFold(domain, "canada"):
		return "federal"
	case strings.Contains(domain, ","):
		return "municipal"
	case len(domain) == 2:
		return "provincial"
	default:
		return "municipal"
	}
}

// provinceFromDomain pulls the two-letter province code out of a domain
// string, if present.
func provinceFromDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if idx := strings.LastIndex(domain, ","); idx >= 0 {
		domain = strings.TrimSpace(domain[idx+1:])
	}
	if len(domain) == 2 && !strings.EqualFold(domain, "ca") {
		return strings.ToLower(domain)
	}
	return ""
}
