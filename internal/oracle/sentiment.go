package oracle

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// SentimentSource is the read interface to the sentiment oracle.
type SentimentSource interface {
	Score(ctx context.Context, query string) (float64, error)
}

// SentimentClient queries the sentiment oracle service. The service scrapes
// social media for the query and returns an aggregate sentiment scalar in
// [0,1]; its response shape is not under our control, so the score is
// extracted loosely rather than bound to a struct.
type SentimentClient struct {
	client *resty.Client
	logger *zap.Logger
}

var _ SentimentSource = (*SentimentClient)(nil)

// NewSentimentClient creates a sentiment oracle client against baseURL.
func NewSentimentClient(baseURL string, logger *zap.Logger) *SentimentClient {
	return &SentimentClient{
		client: resty.New().SetBaseURL(baseURL),
		logger: logger.Named("sentiment"),
	}
}

// Score fetches the sentiment score for a free-text query. An empty corpus
// (no score in the response) is neutral-low 0.0, never an error. Scores are
// clamped into [0,1].
func (c *SentimentClient) Score(ctx context.Context, query string) (float64, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		Get("/sentiment")
	if err != nil {
		return 0, fmt.Errorf("sentiment request failed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("sentiment oracle returned status %s", resp.Status())
	}

	// Accept either {"score": x} or {"data": {"score": x}}.
	body := resp.Body()
	score := gjson.GetBytes(body, "score")
	if !score.Exists() {
		score = gjson.GetBytes(body, "data.score")
	}
	if !score.Exists() {
		c.logger.Debug("No sentiment data for query, defaulting to neutral-low",
			zap.String("query", query))
		return 0, nil
	}

	s := score.Float()
	if s < 0 {
		s = 0
	} else if s > 1 {
		s = 1
	}
	return s, nil
}
