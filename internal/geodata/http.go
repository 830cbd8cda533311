package geodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent identifies this service to public geodata endpoints, which
// require a descriptive agent string.
const DefaultUserAgent = "georisk/1.0 (+https://github.com/MikeSquared-Agency/Georisk)"

type httpBase struct {
	name       string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func newHTTPBase(name, baseURL, userAgent string) httpBase {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return httpBase{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (b httpBase) get(ctx context.Context, path string, query url.Values, out any) error {
	u := b.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return upstream(b.name, CategoryTransport, 0, err)
	}
	return b.do(req, out)
}

func (b httpBase) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return upstream(b.name, CategoryTransport, 0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req, out)
}

func (b httpBase) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return b.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return b.classify(err)
	}
	if resp.StatusCode >= 400 {
		return upstream(b.name, CategoryBadStatus, resp.StatusCode, fmt.Errorf("%s", truncate(string(body), 200)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return upstream(b.name, CategoryMalformed, resp.StatusCode, err)
	}
	return nil
}

func (b httpBase) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return upstream(b.name, CategoryTimeout, 0, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return upstream(b.name, CategoryTimeout, 0, err)
	}
	return upstream(b.name, CategoryTransport, 0, err)
}

func (b httpBase) noResult(format string, args ...any) error {
	return upstream(b.name, CategoryNoResult, 0, fmt.Errorf("%w: %s", ErrNoResult, fmt.Sprintf(format, args...)))
}

func (b httpBase) malformed(format string, args ...any) error {
	return upstream(b.name, CategoryMalformed, 0, fmt.Errorf(format, args...))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
