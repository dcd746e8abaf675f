package cube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

const (
	metaPath  = "/cubejs-api/v1/meta"
	loadPath  = "/cubejs-api/v1/load"
	readyPath = "/readyz"

	// Cube answers "Continue wait" while a query is still building its
	// pre-aggregations. We poll a bounded number of times before giving up.
	continueWaitAttempts = 10
	continueWaitDelay    = time.Second

	tokenTTL = time.Hour
)

// Config holds connection settings for a Cube deployment.
type Config struct {
	BaseURL   string
	APISecret string
	Timeout   time.Duration
}

// Client talks to the Cube REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiSecret  string
	waitDelay  time.Duration
	logger     *zap.Logger
}

// NewClient creates a Cube REST client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cube base url is required")
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("cube api secret is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiSecret:  cfg.APISecret,
		waitDelay:  continueWaitDelay,
		logger:     logger.Named("cube"),
	}, nil
}

// token mints a short-lived HS256 bearer token the way the Cube REST API
// expects.
func (c *Client) token() (string, error) {
	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	tok, err := c.token()
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cube request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return respBody, nil
}

// Ready checks connectivity against the deployment's readiness probe.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, readyPath, nil)
	return err
}

type metaCube struct {
	Name       string      `json:"name"`
	Title      string      `json:"title"`
	Measures   []metaField `json:"measures"`
	Dimensions []metaField `json:"dimensions"`
}

type metaField struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// FetchView retrieves metadata for a single view and converts it into a
// schema snapshot keyed by bare field names.
func (c *Client) FetchView(ctx context.Context, viewName string) (*models.SchemaSnapshot, error) {
	body, err := c.do(ctx, http.MethodGet, metaPath, nil)
	if err != nil {
		return nil, err
	}

	var meta struct {
		Cubes []metaCube `json:"cubes"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode meta response: %w", err)
	}

	for _, cb := range meta.Cubes {
		if cb.Name != viewName {
			continue
		}

		snap := &models.SchemaSnapshot{
			ViewName:   viewName,
			Measures:   make(map[string]models.FieldInfo, len(cb.Measures)),
			Dimensions: make(map[string]models.FieldInfo, len(cb.Dimensions)),
			FetchedAt:  time.Now(),
		}

		for _, m := range cb.Measures {
			bare := models.BareFieldName(m.Name)
			snap.Measures[bare] = models.FieldInfo{
				Name:        bare,
				Title:       m.Title,
				Description: m.Description,
				Kind:        models.FieldKindCategorical,
			}
		}
		for _, d := range cb.Dimensions {
			bare := models.BareFieldName(d.Name)
			kind := models.FieldKindCategorical
			if d.Type == "time" {
				kind = models.FieldKindTime
			}
			snap.Dimensions[bare] = models.FieldInfo{
				Name:        bare,
				Title:       d.Title,
				Description: d.Description,
				Kind:        kind,
			}
		}

		c.logger.Info("fetched view metadata",
			zap.String("view", viewName),
			zap.Int("measures", len(snap.Measures)),
			zap.Int("dimensions", len(snap.Dimensions)))

		return snap, nil
	}

	return nil, fmt.Errorf("view %q not found in cube metadata", viewName)
}

type loadResponse struct {
	Error string           `json:"error"`
	Data  []map[string]any `json:"data"`
}

// Load executes a query via POST /cubejs-api/v1/load, polling through
// "Continue wait" responses until data arrives or the wait budget runs out.
func (c *Client) Load(ctx context.Context, query *models.CubeQuery) ([]map[string]any, error) {
	payload, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	start := time.Now()

	for attempt := 0; attempt < continueWaitAttempts; attempt++ {
		body, err := c.do(ctx, http.MethodPost, loadPath, payload)
		if err != nil {
			return nil, err
		}

		var result loadResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode load response: %w", err)
		}

		if result.Error == "Continue wait" {
			select {
			case <-time.After(c.waitDelay):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if result.Error != "" {
			return nil, &APIError{StatusCode: http.StatusOK, Message: result.Error}
		}

		c.logger.Info("query executed",
			zap.Int("rows", len(result.Data)),
			zap.Duration("elapsed", time.Since(start)))

		return result.Data, nil
	}

	return nil, fmt.Errorf("query still building after %d wait cycles", continueWaitAttempts)
}
