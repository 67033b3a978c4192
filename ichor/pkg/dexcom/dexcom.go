package dexcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/units"

	"go.uber.org/zap"
)

const (
	appID            = "d89443d2-327c-4a6f-89e5-496bbb0317db"
	DefaultBaseURL   = "https://shareous1.dexcom.com/ShareWebServices/Services"
	loginEndpoint    = "General/LoginPublisherAccountByName"
	readingsEndpoint = "Publisher/ReadPublisherLatestGlucoseValues"

	// One day's worth.
	MinuteLimit = 1440
	CountLimit  = 288
)

type Client struct {
	client      *http.Client
	logger      *zap.Logger
	baseURL     string
	accountName string
	password    string
	sessionID   string
}

type LoginRequest struct {
	AccountName   string `json:"accountName"`
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
}

type Reading struct {
	WT          string  `json:"WT"`
	SystemTime  string  `json:"ST"`
	DisplayTime string  `json:"DT"`
	Value       float64 `json:"Value"`
	Trend       string  `json:"Trend"`
}

func New(cfg defs.DexcomConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		accountName: cfg.Account,
		password:    cfg.Password,
	}
}

// Readings fetches readings from Dexcom's Share API, oldest first.
// Automatically creates a new session when it expires.
func (c *Client) Readings(ctx context.Context, minutes, maxCount int) ([]defs.TransformedReading, error) {
	if minutes > MinuteLimit || maxCount > CountLimit || minutes <= 0 || maxCount <= 0 {
		return nil, fmt.Errorf("window out of bounds: minutes %d, maxCount %d", minutes, maxCount)
	}

	trs, err := c.readings(ctx, minutes, maxCount)
	if err == nil {
		return trs, nil
	}

	c.logger.Debug("fetch failed, renewing session", zap.Error(err))
	if _, err := c.CreateSession(ctx); err != nil {
		return nil, err
	}
	return c.readings(ctx, minutes, maxCount)
}

func (c *Client) CreateSession(ctx context.Context) (string, error) {
	lreq := &LoginRequest{
		AccountName:   c.accountName,
		Password:      c.password,
		ApplicationID: appID,
	}

	b, err := json.Marshal(lreq)
	if err != nil {
		return "", fmt.Errorf("unable to encode login request: %w", err)
	}

	c.logger.Debug("making login request for sessionID",
		zap.String("account", c.accountName),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+loginEndpoint, bytes.NewBuffer(b))
	if err != nil {
		return "", fmt.Errorf("unable to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("unable to login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("unable to read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected with status %d: %s", resp.StatusCode, body)
	}
	c.sessionID = strings.Trim(string(body), "\"")

	c.logger.Debug("successfully obtained sessionID")

	return c.sessionID, nil
}

func (c *Client) readings(ctx context.Context, minutes, maxCount int) ([]defs.TransformedReading, error) {
	params := url.Values{
		"sessionId": {c.sessionID},
		"minutes":   {strconv.Itoa(minutes)},
		"maxCount":  {strconv.Itoa(maxCount)},
	}

	c.logger.Debug("making fetch request",
		zap.Int("minutes", minutes),
		zap.Int("maximum count", maxCount),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+readingsEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create readings request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch readings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("readings rejected with status %d", resp.StatusCode)
	}

	var readings []Reading
	if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
		return nil, fmt.Errorf("unable to decode readings: %w", err)
	}

	c.logger.Debug("received readings from share API",
		zap.Int("count", len(readings)),
	)

	// The API answers newest first.
	trs := make([]defs.TransformedReading, 0, len(readings))
	for i := len(readings) - 1; i >= 0; i-- {
		tr, err := Transform(readings[i])
		if err != nil {
			return nil, err
		}
		trs = append(trs, tr)
	}

	return trs, nil
}

// Transform parses the "Date(<ms>)" wire time and converts mg/dL to mmol/L.
func Transform(r Reading) (defs.TransformedReading, error) {
	ms, err := parseWireTime(r.WT)
	if err != nil {
		return defs.TransformedReading{}, err
	}
	if !units.IsValid(r.Value, units.MgDL) {
		return defs.TransformedReading{}, fmt.Errorf("%w: %v mg/dL at %s", units.ErrInvalidGlucose, r.Value, r.WT)
	}

	return defs.TransformedReading{
		Time:  time.UnixMilli(ms),
		Mmol:  units.MgdlToMmol(r.Value),
		Trend: r.Trend,
	}, nil
}

func parseWireTime(wt string) (int64, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(wt, "Date("), ")")
	// Display times carry an offset such as "-0400".
	if i := strings.LastIndexAny(inner, "+-"); i > 0 {
		inner = inner[:i]
	}
	ms, err := strconv.ParseInt(inner, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse wire time %q: %w", wt, err)
	}
	return ms, nil
}
