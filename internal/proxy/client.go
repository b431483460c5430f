// Package proxy fetches problem content from the remote content proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultBaseURL is the public content proxy.
const DefaultBaseURL = "https://wandering-sky-a896.cbracketdash.workers.dev"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// Part selects which resource of a problem page is requested.
type Part byte

// Markers understood by the proxy.
const (
	PartStatement Part = '!'
	PartSolution  Part = '$'
	PartAnswer    Part = '|'
)

func (p Part) String() string {
	switch p {
	case PartStatement:
		return "statement"
	case PartSolution:
		return "solution"
	case PartAnswer:
		return "answer"
	default:
		return "unknown"
	}
}

// ErrUnavailable marks a soft, retryable fetch failure.
var ErrUnavailable = errors.New("content unavailable")

// FetchError describes why a part could not be fetched. Every FetchError
// matches ErrUnavailable.
type FetchError struct {
	Part   Part
	Path   string
	Status int
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s of %s: %s", e.Part, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUnavailable.
func (e *FetchError) Is(target error) bool {
	return target == ErrUnavailable
}

// Content is the cleaned text of one problem page.
type Content struct {
	Statement string
	Solution  string
	Answer    string
}

// Client talks to the content proxy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Client for baseURL. A zero timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "proxy"),
	}
}

// Fetch retrieves statement, solution and answer for path, in that order.
// Failures are *FetchError values unless ctx was cancelled.
func (c *Client) Fetch(ctx context.Context, path string) (Content, error) {
	start := time.Now()
	statement, err := c.get(ctx, PartStatement, path)
	if err != nil {
		return Content{}, err
	}
	solution, err := c.get(ctx, PartSolution, path)
	if err != nil {
		return Content{}, err
	}
	answerBody, err := c.get(ctx, PartAnswer, path)
	if err != nil {
		return Content{}, err
	}
	answer := extractAnswer(answerBody)
	if isSentinel(answer) {
		return Content{}, &FetchError{Part: PartAnswer, Path: path, Reason: fmt.Sprintf("sentinel answer %q", answer)}
	}
	c.logger.Debug("fetched problem", "path", path, "elapsed", time.Since(start))
	return Content{
		Statement: cleanBody(statement),
		Solution:  stripWikiLinks(cleanBody(solution)),
		Answer:    answer,
	}, nil
}

// URL builds the request URL for one part of path.
func (c *Client) URL(part Part, path string) string {
	return c.baseURL + "/?" + string(rune(part)) + path
}

func (c *Client) get(ctx context.Context, part Part, path string) (string, error) {
	url := c.URL(part, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.logger.Warn("request failed", "part", part.String(), "path", path, "err", err)
		return "", &FetchError{Part: part, Path: path, Reason: "request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected status", "part", part.String(), "path", path, "status", resp.StatusCode)
		return "", &FetchError{Part: part, Path: path, Status: resp.StatusCode, Reason: "unexpected status " + resp.Status}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &FetchError{Part: part, Path: path, Reason: "failed to read body", Err: err}
	}
	body := string(data)
	switch {
	case strings.TrimSpace(body) == "":
		return "", &FetchError{Part: part, Path: path, Reason: "empty body"}
	case IsDocument(body):
		return "", &FetchError{Part: part, Path: path, Reason: "full HTML document instead of fragment"}
	case isSentinel(unwrapBytes(body)):
		return "", &FetchError{Part: part, Path: path, Reason: "not found marker"}
	}
	return body, nil
}

var sentinels = map[string]struct{}{
	"none":      {},
	"null":      {},
	"not found": {},
	"notfound":  {},
	"invalid":   {},
	"error":     {},
}

func isSentinel(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return true
	}
	if _, ok := sentinels[lower]; ok {
		return true
	}
	// Short bodies only; a statement may legitimately mention "invalid".
	if len(lower) <= 64 && (strings.Contains(lower, "not found") || strings.HasPrefix(lower, "invalid")) {
		return true
	}
	return false
}

// unwrapBytes removes a python bytes literal wrapper: b'...' or b"...".
func unwrapBytes(s string) string {
	t := strings.TrimSpace(s)
	if len(t) >= 3 && t[0] == 'b' && (t[1] == '\'' || t[1] == '"') && t[len(t)-1] == t[1] {
		return t[2 : len(t)-1]
	}
	return t
}

func cleanBody(s string) string {
	s = unwrapBytes(s)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\'`, "'")
	return strings.TrimSpace(s)
}

// extractAnswer returns the token between b' and the next quote, or the
// trimmed body when the proxy did not wrap it.
func extractAnswer(body string) string {
	if _, rest, ok := strings.Cut(body, "b'"); ok {
		token, _, _ := strings.Cut(rest, "'")
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(body)
}

var wikiLinkRe = regexp.MustCompile(`(?is)<a[^>]*href="[^"]*artofproblemsolving\.com[^"]*"[^>]*>.*?</a>`)

func stripWikiLinks(s string) string {
	return strings.TrimSpace(wikiLinkRe.ReplaceAllString(s, ""))
}
