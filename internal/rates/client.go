// Package rates fetches fiat conversion rates for the native currency and
// contract exchange rates for registered tokens.
package rates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultPriceURL      = "https://min-api.cryptocompare.com"
	DefaultTokenPriceURL = "https://api.coingecko.com"
	defaultTimeout       = 7 * time.Second
)

var ErrRateUnavailable = errors.New("rate unavailable")

type Config struct {
	PriceURL      string `mapstructure:"priceURL"`
	TokenPriceURL string `mapstructure:"tokenPriceURL"`
	// TokenPlatform is the coingecko asset platform id, e.g. "ethereum".
	TokenPlatform string        `mapstructure:"tokenPlatform"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.PriceURL == "" {
		cfg.PriceURL = DefaultPriceURL
	}
	if cfg.TokenPriceURL == "" {
		cfg.TokenPriceURL = DefaultTokenPriceURL
	}
	if cfg.TokenPlatform == "" {
		cfg.TokenPlatform = "ethereum"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// ConversionRate returns how many units of currency one unit of native is worth.
func (c *Client) ConversionRate(ctx context.Context, native, currency string) (decimal.Decimal, error) {
	native = strings.ToUpper(strings.TrimSpace(native))
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if native == "" || currency == "" {
		return decimal.Zero, errors.New("native and currency are required")
	}

	q := url.Values{}
	q.Set("fsym", native)
	q.Set("tsyms", currency)

	var body map[string]json.RawMessage
	if err := c.getJSON(ctx, c.cfg.PriceURL+"/data/price?"+q.Encode(), &body); err != nil {
		return decimal.Zero, err
	}

	// {"Response":"Error","Message":"..."} on unknown symbols
	if raw, ok := body["Message"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return decimal.Zero, errors.Wrapf(ErrRateUnavailable, "%s/%s: %s", native, currency, msg)
	}

	raw, ok := body[currency]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrRateUnavailable, "%s/%s", native, currency)
	}
	var rate decimal.Decimal
	if err := rate.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, errors.Wrapf(err, "decode %s/%s rate", native, currency)
	}
	return rate, nil
}

// TokenRates returns the price of each contract in vsCurrency, keyed by
// lower-cased contract address. Contracts the source does not know are
// left out.
func (c *Client) TokenRates(ctx context.Context, contracts []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	if len(contracts) == 0 {
		return out, nil
	}
	vs := strings.ToLower(strings.TrimSpace(vsCurrency))
	if vs == "" {
		return nil, errors.New("vs currency is required")
	}

	addrs := make([]string, 0, len(contracts))
	for _, a := range contracts {
		addrs = append(addrs, strings.ToLower(strings.TrimSpace(a)))
	}

	q := url.Values{}
	q.Set("contract_addresses", strings.Join(addrs, ","))
	q.Set("vs_currencies", vs)

	var body map[string]map[string]decimal.Decimal
	endpoint := c.cfg.TokenPriceURL + "/api/v3/simple/token_price/" + url.PathEscape(c.cfg.TokenPlatform) + "?" + q.Encode()
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	for addr, prices := range body {
		if p, ok := prices[vs]; ok {
			out[strings.ToLower(addr)] = p
		}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "rates request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrRateUnavailable, "status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "rates decode")
	}
	return nil
}
