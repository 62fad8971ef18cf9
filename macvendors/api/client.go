package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	DEFAULT_BASE_URL = "https://api.macvendors.com"
	USER_AGENT       = "blueberry/1.0"
	REQUEST_TIMEOUT  = 5 * time.Second
	MAX_BODY_SIZE    = 64 * 1024
)

type Client struct {
	httpClient http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

type lookupResponse struct {
	Data struct {
		OrganizationName string `json:"organization_name"`
	} `json:"data"`
}

func NewClient(baseURL, apiKey string) *Client {
	return NewClientWithLogger(baseURL, apiKey, nil)
}

func NewClientWithLogger(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}

	return &Client{
		httpClient: http.Client{
			Timeout: REQUEST_TIMEOUT,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

func (client *Client) log(level slog.Level, msg string, args ...any) {
	if client.logger != nil {
		client.logger.Log(context.Background(), level, msg, args...)
	}
}

// LookupVendor asks the service for the organization owning mac.
// Without an API key the anonymous endpoint is queried by OUI prefix and
// answers in plain text; with a key the v1 endpoint is queried by full
// address and answers in JSON.
func (client *Client) LookupVendor(ctx context.Context, mac string) (string, error) {
	request, err := client.newRequest(ctx, mac)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	client.log(slog.LevelDebug, "Looking up vendor", "url", request.URL.String())

	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("failed to look up vendor: %w", err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrNotFound
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	default:
		return "", &StatusError{StatusCode: response.StatusCode, Status: response.Status}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, MAX_BODY_SIZE))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if isHTML(response.Header.Get("Content-Type"), body) {
		return "", &InterceptedError{Title: pageTitle(body)}
	}

	if client.apiKey != "" {
		return parseJSON(body)
	}

	return parseText(body)
}

func (client *Client) newRequest(ctx context.Context, mac string) (*http.Request, error) {
	var endpoint string
	if client.apiKey != "" {
		endpoint = fmt.Sprintf("%s/v1/lookup/%s", client.baseURL, url.PathEscape(mac))
	} else {
		oui := strings.ReplaceAll(strings.ToUpper(prefix(mac)), ":", "-")
		endpoint = fmt.Sprintf("%s/%s", client.baseURL, url.PathEscape(oui))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	request.Header.Set("User-Agent", USER_AGENT)
	if client.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+client.apiKey)
		request.Header.Set("Accept", "application/json")
	} else {
		request.Header.Set("Accept", "text/plain")
	}

	return request, nil
}

func prefix(mac string) string {
	if len(mac) < 8 {
		return mac
	}
	return mac[:8]
}

func parseJSON(body []byte) (string, error) {
	var data lookupResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	organization := strings.TrimSpace(data.Data.OrganizationName)
	if organization == "" {
		return "", ErrEmptyResponse
	}

	return organization, nil
}

// parseText accepts either a bare organization name or a multi-line
// "Organization: <name>" block.
func parseText(body []byte) (string, error) {
	text := strings.TrimSpace(string(body))

	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ":")
		if found && strings.EqualFold(strings.TrimSpace(key), "organization") {
			text = strings.TrimSpace(value)
			break
		}
	}

	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

func isHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}

	start := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 256)])))
	return strings.HasPrefix(start, "<!doctype html") || strings.HasPrefix(start, "<html")
}

func pageTitle(body []byte) string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	return title
}
