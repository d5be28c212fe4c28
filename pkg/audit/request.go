package audit

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidParams marks a request that is missing required fields.
	// Callers surface it as a protocol fault rather than a tool failure.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrInvalidURL marks a url that is present but not auditable.
	ErrInvalidURL = errors.New("invalid URL")
)

// AuditRequest asks for a full report on one page.
type AuditRequest struct {
	URL         string   `json:"url"`
	IncludeHTML bool     `json:"includeHtml"`
	Tags        []string `json:"tags"`
}

// Validate trims the url in place and checks required fields.
func (r *AuditRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	return requireURL(r.URL)
}

// SummaryRequest asks for severity counts on one page. Only the URL is
// honoured; the rule engine always runs its default rule set.
type SummaryRequest struct {
	URL string `json:"url"`
}

// Validate trims the url in place and checks required fields.
func (r *SummaryRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	return requireURL(r.URL)
}

func requireURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidParams)
	}
	return nil
}

// ParseTarget checks that raw is an absolute http(s) URL with a host.
func ParseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q must use http or https", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return u, nil
}
