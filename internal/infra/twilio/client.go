// Package twilio sends WhatsApp messages through the Twilio Messages REST API.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"birthday_notification_bot/internal/domain/messaging"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const whatsappPrefix = "whatsapp:"

type Config struct {
	AccountSID string
	AuthToken  string
	From       string // "whatsapp:+14155238886"
	BaseURL    string // https://api.twilio.com unless overridden
	RatePerSec int
	Timeout    time.Duration
}

// Client implements messaging.Transport.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Entry
}

func NewClient(cfg Config, logger *logrus.Entry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		logger:  logger,
	}
}

func (c *Client) Name() string { return "twilio" }

type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send posts one WhatsApp message. The destination gets the whatsapp: prefix if it lacks one.
func (c *Client) Send(ctx context.Context, destination, body string) (messaging.Receipt, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return messaging.Receipt{}, &messaging.TransportError{Code: messaging.CodeNetwork, Message: "rate limiter wait aborted", Err: err}
	}

	form := url.Values{}
	form.Set("From", c.cfg.From)
	form.Set("To", withPrefix(destination))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.cfg.BaseURL, url.PathEscape(c.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return messaging.Receipt{}, &messaging.TransportError{Code: messaging.CodeUnknown, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var msg messageResponse
	if err := c.do(req, &msg); err != nil {
		return messaging.Receipt{}, err
	}
	if msg.ErrorCode != nil {
		return messaging.Receipt{}, &messaging.TransportError{Code: strconv.Itoa(*msg.ErrorCode), Message: msg.ErrorMessage}
	}

	c.logger.WithFields(logrus.Fields{"sid": msg.SID, "status": msg.Status}).Debug("twilio message accepted")
	return messaging.Receipt{ID: msg.SID, Status: msg.Status}, nil
}

// Ping fetches the account resource, which checks the credentials without sending anything.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.cfg.BaseURL, url.PathEscape(c.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	var account struct {
		Status string `json:"status"`
	}
	if err := c.do(req, &account); err != nil {
		return err
	}
	if account.Status != "" && account.Status != "active" {
		return &messaging.TransportError{Code: "ACCOUNT_" + strings.ToUpper(account.Status), Message: "twilio account is " + account.Status}
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &messaging.TransportError{Code: messaging.CodeNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &messaging.TransportError{Code: messaging.CodeNetwork, Message: "read response", Err: err}
	}

	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Code != 0 {
			return &messaging.TransportError{Code: strconv.Itoa(apiErr.Code), Message: apiErr.Message}
		}
		return &messaging.TransportError{Code: strconv.Itoa(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &messaging.TransportError{Code: messaging.CodeUnknown, Message: "decode response", Err: err}
	}
	return nil
}

func withPrefix(dest string) string {
	if strings.HasPrefix(dest, whatsappPrefix) {
		return dest
	}
	return whatsappPrefix + dest
}

// IsRejected tells a provider rejection apart from a network failure.
func IsRejected(err error) bool {
	var te *messaging.TransportError
	return errors.As(err, &te) && te.Code != messaging.CodeNetwork
}
