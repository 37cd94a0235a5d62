package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cstats-bot/internal/config"
	"cstats-bot/internal/constants"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrDecode = errors.New("failed to decode response")

// StatusError is returned when the platform answers with a non-200 status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: HTTP %d from %s", e.Code, e.URL)
}

type FiveEClient struct {
	arenaBaseURL string
	gateBaseURL  string
	client       *fasthttp.Client
}

func NewFiveEClient(cfg *config.Config) *FiveEClient {
	return &FiveEClient{
		arenaBaseURL: cfg.ArenaBaseURL,
		gateBaseURL:  cfg.GateBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         cfg.APITimeout,
			WriteTimeout:        cfg.APITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Close releases pooled connections. The client stays usable.
func (c *FiveEClient) Close() {
	c.client.CloseIdleConnections()
}

func (c *FiveEClient) SearchPlayers(ctx context.Context, keywords string) (*SearchResponse, error) {
	query := url.Values{"keywords": {keywords}}.Encode()
	u := c.arenaBaseURL + "/api/search/player/1/16?" + query
	headers := map[string]string{
		"Accept-Language":  "zh-CN,zh;q=0.8,zh-TW;q=0.6,zh-HK;q=0.4,en;q=0.2",
		"X-Requested-With": "XMLHttpRequest",
		"Referer":          c.arenaBaseURL + "/search?" + query,
	}
	return doRequest[SearchResponse](ctx, c, fasthttp.MethodGet, u, nil, headers)
}

func (c *FiveEClient) TransferID(ctx context.Context, domain string) (*TransferResponse, error) {
	u := c.gateBaseURL + "/userinterface/http/v1/userinterface/idTransfer"
	body, err := json.Marshal(TransferRequest{Trans: TransferDomain{Domain: domain}})
	if err != nil {
		return nil, err
	}
	return doRequest[TransferResponse](ctx, c, fasthttp.MethodPost, u, body, gateHeaders())
}

func (c *FiveEClient) PlayerMatches(ctx context.Context, uuid string) (*PlayerMatchResponse, error) {
	u := c.gateBaseURL + "/crane/http/api/data/player_match?" + url.Values{"uuid": {uuid}}.Encode()
	return doRequest[PlayerMatchResponse](ctx, c, fasthttp.MethodGet, u, nil, gateHeaders())
}

func (c *FiveEClient) MatchDetail(ctx context.Context, matchID string) (*MatchDetailResponse, error) {
	u := c.gateBaseURL + "/crane/http/api/data/match/" + url.PathEscape(matchID)
	return doRequest[MatchDetailResponse](ctx, c, fasthttp.MethodGet, u, nil, gateHeaders())
}

func gateHeaders() map[string]string {
	return map[string]string{
		"Accept-Language": "zh-cn",
		"Origin":          constants.PlatformOrigin,
		"Referer":         constants.PlatformOrigin + "/",
	}
}

func doRequest[T any](ctx context.Context, client *FiveEClient, method, url string, body []byte, headers map[string]string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("Accept", "*/*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), URL: url}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w from %s: %w", ErrDecode, url, err)
	}
	return &result, nil
}

type SearchResponse struct {
	Data struct {
		User struct {
			List []SearchUser `json:"list"`
		} `json:"user"`
	} `json:"data"`
}

type SearchUser struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
}

type TransferRequest struct {
	Trans TransferDomain `json:"trans"`
}

type TransferDomain struct {
	Domain string `json:"domain"`
}

type TransferResponse struct {
	Data struct {
		UUID string `json:"uuid"`
	} `json:"data"`
}

type PlayerMatchResponse struct {
	Data struct {
		MatchData []MatchHistoryItem `json:"match_data"`
	} `json:"data"`
}

type MatchHistoryItem struct {
	MatchID string `json:"match_id"`
}

// MatchDetailResponse keeps the data object raw; its fields are loosely typed.
type MatchDetailResponse struct {
	Data jsoniter.RawMessage `json:"data"`
}
