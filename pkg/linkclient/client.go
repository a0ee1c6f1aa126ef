// Package linkclient is the client a connected trading app uses to redeem a
// journal link token and to push signed copy events.
package linkclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"journal-backend/pkg/security"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 300 * time.Millisecond
	defaultRetryMaxBackoff = 4 * time.Second

	consumePath    = "/v1/links/consume"
	copyEventsPath = "/v1/copy-events"
)

// APIError is a non-2xx answer from the journal.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("journal api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Link is the result of redeeming a token.
type Link struct {
	JournalUserID string `json:"journalUserId"`
	SigningSecret string `json:"sharedSigningSecret"`
}

// CopyEventAck acknowledges an ingested copy event.
type CopyEventAck struct {
	Duplicate     bool   `json:"duplicate"`
	CopiedTradeID string `json:"copied_trade_id,omitempty"`
}

type Client struct {
	baseURL string
	http    *resty.Client
}

// New creates a client for the journal at baseURL.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &Client{baseURL: baseURL, http: httpClient}
}

// Transport errors are not retried: a consume that reached the server may
// have burned the token.
func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil || r == nil {
		return false
	}
	code := r.StatusCode()
	return code == 429 || code == 502 || code == 503 || code == 504
}

// Consume redeems a link token. sourceSystem names this app in the journal
// and sourceURL is where the journal can reach it; both are optional.
func (c *Client) Consume(ctx context.Context, token, sourceSystem, sourceURL string) (*Link, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("link token is required")
	}

	var out Link
	var failure struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"linkToken":    token,
			"sourceSystem": sourceSystem,
			"sourceUrl":    sourceURL,
		}).
		SetResult(&out).
		SetError(&failure).
		Post(consumePath)
	if err != nil {
		return nil, fmt.Errorf("consume link token: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Code: failure.Code, Message: failure.Error}
	}
	if out.SigningSecret == "" {
		return nil, errors.New("consume link token: empty signing secret in response")
	}
	return &out, nil
}

// PublishCopyEvent signs payload with secret and posts it. eventID may be
// empty, in which case one is generated; reuse it when retrying so the
// journal can deduplicate.
func (c *Client) PublishCopyEvent(ctx context.Context, appID uuid.UUID, eventID, secret string, payload interface{}) (*CopyEventAck, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode copy event: %w", err)
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	var envelope struct {
		Success bool         `json:"success"`
		Data    CopyEventAck `json:"data"`
	}
	var failure struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-App-Id", appID.String()).
		SetHeader("X-Event-Id", eventID).
		SetHeader("X-Signature", security.SignaturePrefix+security.Sign(secret, body)).
		SetBody(body).
		SetResult(&envelope).
		SetError(&failure).
		Post(copyEventsPath)
	if err != nil {
		return nil, fmt.Errorf("publish copy event: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Code: failure.Error.Code, Message: failure.Error.Message}
	}

	logger.WithFields(logger.Fields{
		"component": "linkclient",
		"event_id":  eventID,
		"duplicate": envelope.Data.Duplicate,
	}).Debug("copy event delivered")
	return &envelope.Data, nil
}
