package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultAPIURL is the English Wikipedia MediaWiki action API.
const DefaultAPIURL = "https://en.wikipedia.org/w/api.php"

// ErrPageNotFound is returned when a title resolves to no page.
var ErrPageNotFound = errors.New("page does not match any pages")

// SearchHit is one result of a full-text search.
type SearchHit struct {
	Title   string `json:"title"`
	PageID  int    `json:"pageid"`
	Snippet string `json:"snippet"`
}

// APIError is an error object returned by MediaWiki.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wikipedia API error %s: %s", e.Code, e.Info)
}

// DisambiguationError is returned when a title points at a disambiguation page.
type DisambiguationError struct {
	Title string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%q may refer to several pages", e.Title)
}

// Client handles Wikipedia search and summary lookups
type Client struct {
	apiURL     string
	httpClient *http.Client
	userAgent  string
	maxResults int
}

// NewClient creates a new Wikipedia client for the given api.php URL
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent:  "research-blog-pipeline/1.0 (https://github.com/pep299/research-blog-pipeline)",
		maxResults: 10,
	}
}

type searchResponse struct {
	Error *APIError `json:"error"`
	Query struct {
		Search []SearchHit `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Error *APIError `json:"error"`
	Query struct {
		Pages []struct {
			Title     string            `json:"title"`
			Missing   bool              `json:"missing"`
			Invalid   bool              `json:"invalid"`
			Extract   string            `json:"extract"`
			PageProps map[string]string `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
}

// Search runs a full-text search and returns the hits in relevance order.
func (c *Client) Search(ctx context.Context, query string) ([]SearchHit, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {query},
		"srlimit":       {strconv.Itoa(c.maxResults)},
		"srprop":        {"snippet"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	hits := resp.Query.Search
	for i := range hits {
		hits[i].Snippet = htmlToText(hits[i].Snippet)
	}
	return hits, nil
}

// Summary returns the first sentences of the page's plain-text extract.
// Redirects are followed.
func (c *Client) Summary(ctx context.Context, title string, sentences int) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts|pageprops"},
		"ppprop":        {"disambiguation"},
		"explaintext":   {"1"},
		"redirects":     {"1"},
		"titles":        {title},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	if sentences > 0 {
		params.Set("exsentences", strconv.Itoa(sentences))
	} else {
		params.Set("exintro", "1")
	}

	var resp extractResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	if len(resp.Query.Pages) == 0 {
		return "", fmt.Errorf("%q: %w", title, ErrPageNotFound)
	}
	page := resp.Query.Pages[0]
	if page.Missing || page.Invalid {
		return "", fmt.Errorf("%q: %w", title, ErrPageNotFound)
	}
	if _, ok := page.PageProps["disambiguation"]; ok {
		return "", &DisambiguationError{Title: page.Title}
	}

	return strings.TrimSpace(page.Extract), nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", params.Get("action"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// htmlToText strips markup such as <span class="searchmatch"> from snippets.
func htmlToText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
