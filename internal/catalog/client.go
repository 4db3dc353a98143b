package catalog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/matchboard/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/matchboard"
	// Max value for per_page the catalog API accepts.
	perPage = "100"
)

// PageResponse is one page of a remote catalog listing.
type PageResponse struct {
	Items   []map[string]any
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

// Client fetches pools from a paginated catalog API.
type Client struct {
	logger     *zap.Logger
	token      string
	HTTPClient *http.Client
	UserAgent  string
	// PageDelay is waited between page requests.
	PageDelay time.Duration
}

func NewClient(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		token:  token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
	}
}

// Fetch walks every page of the listing at url and returns the prepared pool.
func (c *Client) Fetch(ctx context.Context, url string) (*Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	q := req.URL.Query()
	if q.Get("per_page") == "" {
		q.Set("per_page", perPage)
	}
	req.URL.RawQuery = q.Encode()

	response, err := c.getPage(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got catalog page", zap.Int("pages", response.Pages), zap.Int("per page", response.PerPage))

	items := append([]map[string]any{}, response.Items...)

	// Page numbers come from the client side; the server's count is read once.
	total := response.Pages
	for page := response.Page + 1; page < total; page++ {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", page, total),
		))

		if err := utils.WaitFor(ctx, c.PageDelay); err != nil {
			return nil, err
		}

		response, err = c.getPage(addPage(req, page))
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)
	}

	pool, err := decodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("decoding catalog items: %w", err)
	}

	if err := pool.Prepare(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched catalog", zap.String("url", url), zap.Int("count", pool.Len()))
	return pool, nil
}

func (c *Client) getPage(req *http.Request) (*PageResponse, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	var response PageResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Content-Type", contentType)

	return req
}

func decodeItems(items []map[string]any) (*Pool, error) {
	var entities []*Entity

	cfg := &mapstructure.DecoderConfig{
		Result:     &entities,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, err
	}

	return &Pool{Items: entities}, nil
}

// addPage sets the page parameter on the request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}

// Load reads a pool from a local file or, for http(s) sources, from a remote catalog.
func Load(ctx context.Context, source string, client *Client) (*Pool, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("catalog source is not configured")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if client == nil {
			client = NewClient(nil, "")
		}
		return client.Fetch(ctx, source)
	}

	return LoadFile(source)
}
