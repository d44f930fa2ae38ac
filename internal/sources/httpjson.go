package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

const defaultFetchTimeout = 20 * time.Second

// httpJSONAdapter expects a generic JSON API under a configured base URL:
//
//	GET {base}/api/events?location=...&from=...&to=...&limit=...
//	  -> {"events":[...], "errors":[...]} or a bare array
//
// Real connectors belong in private repositories; this stays a generic
// placeholder the way the registry's mock adapter does.
type httpJSONAdapter struct {
	key     string
	baseURL string
	query   string
	client  *http.Client
}

// NewHTTPJSONAdapter builds a networked adapter for one source.
func NewHTTPJSONAdapter(key, baseURL, query string, timeout time.Duration) (Adapter, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return nil, errors.New("base_url is required for the http-json adapter")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &httpJSONAdapter{
		key:     key,
		baseURL: strings.TrimRight(base, "/"),
		query:   strings.TrimSpace(query),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *httpJSONAdapter) Key() string { return a.key }

func (a *httpJSONAdapter) Fetch(ctx context.Context, params FetchParams) (FetchResult, error) {
	u, err := url.Parse(a.baseURL + "/api/events")
	if err != nil {
		return FetchResult{}, err
	}
	q := u.Query()
	if a.query != "" {
		q.Set("q", a.query)
	}
	if loc := strings.TrimSpace(params.Location); loc != "" {
		q.Set("location", loc)
	}
	if !params.RangeStart.IsZero() {
		q.Set("from", params.RangeStart.Format("2006-01-02"))
	}
	if !params.RangeEnd.IsZero() {
		q.Set("to", params.RangeEnd.Format("2006-01-02"))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	u.RawQuery = q.Encode()

	body, err := a.doGET(ctx, u.String())
	if err != nil {
		return FetchResult{}, err
	}

	// Accept both object-wrapped and bare-array payloads.
	var wrapped struct {
		Events []models.RawCandidate `json:"events"`
		Errors []string              `json:"errors"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Events != nil {
		return FetchResult(wrapped), nil
	}
	var arr []models.RawCandidate
	if err := json.Unmarshal(body, &arr); err != nil {
		return FetchResult{}, fmt.Errorf("event payload parse: %w", err)
	}
	return FetchResult{Events: arr}, nil
}

func (a *httpJSONAdapter) doGET(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		// A dropped connection mid-body must not surface as a parse failure
		// of the truncated payload.
		return nil, fmt.Errorf("response body read: %w", err)
	}
	return b, nil
}
