package qontak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

// TasksPath is the CRM task listing endpoint
const TasksPath = "/api/v3.1/tasks"

// Fetch failures. Any of them means the dashboard has no data for this load.
var (
	ErrUnexpectedStatus      = errors.New("unexpected status code")
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrInvalidPayload        = errors.New("invalid JSON payload")
	ErrMissingResponse       = errors.New("payload has no response array")
)

// Config holds the CRM connection settings
type Config struct {
	BaseURL string
	Token   string
	Filter  string
	PerPage int
	Timeout time.Duration
}

// Client fetches task records from the CRM. Each fetch is a single round
// trip; there is no retry and no pagination beyond the first page.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger zerolog.Logger
}

// NewClient creates a new CRM client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		httpClient.Transport = &oauth2.Transport{Source: src, Base: http.DefaultTransport}
	}

	rc := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   rc,
		cfg:    cfg,
		logger: logger.With().Str("component", "qontak").Logger(),
	}
}

// FetchTasks retrieves one page of tasks. Elements of the response array that
// are not task objects are skipped and counted in the page.
func (c *Client) FetchTasks(ctx context.Context) (types.TaskPage, error) {
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"filter":   c.cfg.Filter,
			"page":     "1",
			"per_page": strconv.Itoa(c.cfg.PerPage),
		}).
		Get(TasksPath)
	if err != nil {
		return types.TaskPage{}, fmt.Errorf("request tasks: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return types.TaskPage{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return types.TaskPage{}, fmt.Errorf("%w: %q", ErrUnexpectedContentType, contentType)
	}

	page, err := decodeTasks(resp.Body())
	if err != nil {
		return types.TaskPage{}, err
	}

	if page.Skipped > 0 {
		c.logger.Warn().Int("skipped", page.Skipped).Msg("skipped task elements that are not objects")
	}
	c.logger.Debug().
		Int("records", len(page.Records)).
		Dur("duration", time.Since(start)).
		Msg("tasks fetched")

	return page, nil
}

// decodeTasks extracts the response array of a task listing payload
func decodeTasks(body []byte) (types.TaskPage, error) {
	if !gjson.ValidBytes(body) {
		return types.TaskPage{}, ErrInvalidPayload
	}

	result := gjson.GetBytes(body, "response")
	if !result.IsArray() {
		return types.TaskPage{}, ErrMissingResponse
	}

	items := result.Array()
	page := types.TaskPage{Records: make([]types.RawTaskRecord, 0, len(items))}
	for _, item := range items {
		if !item.IsObject() {
			page.Skipped++
			continue
		}
		var rec types.RawTaskRecord
		if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}
