package racesim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// errBackpressure marks a 429 from the service; the read may be retried.
var errBackpressure = errors.New("service applying backpressure")

// HTTPClient talks to the results service.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ResultRow is one leaderboard line as served.
type ResultRow struct {
	Rank           int    `json:"rank"`
	OverallRank    int    `json:"overall_rank"`
	TagID          string `json:"tag_id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	Time           string `json:"time"`
	TimeDifference string `json:"time_difference"`
}

// RaceResults is the whole-race view as served.
type RaceResults struct {
	Race        string      `json:"race"`
	Results     []ResultRow `json:"results"`
	Pending     []struct {
		TagID string `json:"tag_id"`
	} `json:"pending"`
	DidNotStart []Entrant `json:"did_not_start"`
	Anomalies   []struct {
		RawTag string `json:"raw_tag"`
		Reason string `json:"reason"`
	} `json:"anomalies"`
}

// CategoryResults is one category leaderboard as served.
type CategoryResults struct {
	Category        string      `json:"category"`
	Results         []ResultRow `json:"results"`
	TotalRegistered int         `json:"total_registered"`
	TotalFinished   int         `json:"total_finished"`
	DidNotStart     int         `json:"did_not_start"`
	DidNotFinish    int         `json:"did_not_finish"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusTooManyRequests {
			return resp.StatusCode, errBackpressure
		}
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func racePath(race, suffix string) string {
	return "/races/" + url.PathEscape(race) + suffix
}

func (c *HTTPClient) health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

func (c *HTTPClient) putRoster(ctx context.Context, race string, roster []Entrant) (int, error) {
	var out struct {
		Imported int `json:"imported"`
	}
	body := struct {
		Participants []Entrant `json:"participants"`
	}{roster}
	if _, err := c.do(ctx, http.MethodPut, racePath(race, "/roster"), body, &out); err != nil {
		return 0, err
	}
	return out.Imported, nil
}

// postRead reports whether the read was new.
func (c *HTTPClient) postRead(ctx context.Context, race string, r Read) (bool, error) {
	var ack ackResponse
	status, err := c.do(ctx, http.MethodPost, racePath(race, "/reads"), r, &ack)
	if err != nil {
		return false, err
	}
	return status == http.StatusAccepted && !ack.Duplicate, nil
}

func (c *HTTPClient) raceResults(ctx context.Context, race string) (RaceResults, error) {
	var out RaceResults
	_, err := c.do(ctx, http.MethodGet, racePath(race, "/results"), nil, &out)
	return out, err
}

func (c *HTTPClient) categoryResults(ctx context.Context, race string) ([]CategoryResults, error) {
	var out struct {
		Categories []CategoryResults `json:"categories"`
	}
	_, err := c.do(ctx, http.MethodGet, racePath(race, "/results/categories"), nil, &out)
	return out.Categories, err
}
