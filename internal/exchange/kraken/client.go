package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-guard/internal/config"
	"trade-guard/internal/core"
	"trade-guard/internal/exchange"
)

const (
	defaultBaseURL = "https://api.kraken.com"

	balancePath  = "/0/private/Balance"
	addOrderPath = "/0/private/AddOrder"
)

type Client struct {
	apiKey     string
	apiSecret  []byte
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	nonceMu   sync.Mutex
	lastNonce int64
}

type Options struct {
	APIKey         string
	APISecret      string
	BaseURL        string
	HTTPTimeoutSec int64
}

func NewClient(cfg config.GatewayConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("api_key/api_secret required")
	}
	return NewClientWithOptions(Options{
		APIKey:         cfg.APIKey,
		APISecret:      cfg.APISecret,
		BaseURL:        cfg.BaseURL,
		HTTPTimeoutSec: cfg.HTTPTimeoutSec,
	}, logger)
}

func NewClientWithOptions(opts Options, logger *zap.Logger) (*Client, error) {
	secret, err := base64.StdEncoding.DecodeString(opts.APISecret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}
	timeout := 15 * time.Second
	if opts.HTTPTimeoutSec > 0 {
		timeout = time.Duration(opts.HTTPTimeoutSec) * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     opts.APIKey,
		apiSecret:  secret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (c *Client) Name() string { return "kraken" }

func (c *Client) Balances(ctx context.Context) (core.AssetBalances, error) {
	body, err := c.doPrivate(ctx, balancePath, url.Values{})
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode balance result: %w", err)
	}
	balances := make(core.AssetBalances, len(raw))
	for asset, qty := range raw {
		value, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: invalid quantity %q", asset, qty)
		}
		balances[asset] = value
	}
	return balances, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderAck, error) {
	if req.Volume.Cmp(decimal.Zero) <= 0 {
		return exchange.OrderAck{}, errors.New("order volume must be positive")
	}
	params := url.Values{}
	params.Set("pair", req.Pair)
	params.Set("type", strings.ToLower(string(req.Side)))
	params.Set("ordertype", string(req.Type))
	params.Set("volume", req.Volume.String())
	if req.Type == exchange.Limit {
		params.Set("price", req.Price.String())
	}

	body, err := c.doPrivate(ctx, addOrderPath, params)
	if err != nil {
		return exchange.OrderAck{}, err
	}
	var result addOrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return exchange.OrderAck{}, fmt.Errorf("decode add order result: %w", err)
	}
	if len(result.TxIDs) == 0 {
		return exchange.OrderAck{}, errors.New("add order result missing txid")
	}
	c.logger.Info("order accepted",
		zap.String("pair", req.Pair),
		zap.String("side", string(req.Side)),
		zap.String("volume", req.Volume.String()),
		zap.String("txid", result.TxIDs[0]),
	)
	return exchange.OrderAck{
		TransactionIDs: result.TxIDs,
		Description:    result.Descr.Order,
	}, nil
}

func (c *Client) doPrivate(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	nonce := c.nextNonce()
	params.Set("nonce", strconv.FormatInt(nonce, 10))
	encoded := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", c.sign(path, strconv.FormatInt(nonce, 10), encoded))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("kraken http error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	if len(env.Error) > 0 {
		return nil, APIError{Messages: env.Error}
	}
	if len(env.Result) == 0 {
		return nil, errors.New("response envelope missing result")
	}
	return env.Result, nil
}

// sign computes API-Sign: HMAC-SHA512 over path || SHA256(nonce || postdata),
// keyed with the decoded secret, base64-encoded.
func (c *Client) sign(path, nonce, postData string) string {
	digest := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, c.apiSecret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// nextNonce returns a strictly increasing nonce even when calls land in the
// same millisecond.
func (c *Client) nextNonce() int64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	nonce := time.Now().UnixMilli()
	if nonce <= c.lastNonce {
		nonce = c.lastNonce + 1
	}
	c.lastNonce = nonce
	return nonce
}
