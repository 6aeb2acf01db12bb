package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxResponseBytes = 4 << 20

// TokenSource yields the persisted authorization token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configure a Client.
type Options struct {
	BaseURL     string
	TasksPath   string
	Timeout     time.Duration
	TokenPrefix string
}

// Client issues one HTTP request per call and never returns a Go error: every
// outcome is folded into a Result.
type Client struct {
	http     *http.Client
	endpoint string
	prefix   string
	tokens   TokenSource
	logger   zerolog.Logger
}

func NewClient(opts Options, tokens TokenSource, logger zerolog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/" + strings.TrimLeft(opts.TasksPath, "/"),
		prefix:   opts.TokenPrefix,
		tokens:   tokens,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Do sends method to the collection endpoint, or to the record endpoint when
// id is not empty. body is JSON-encoded when not nil.
func (c *Client) Do(ctx context.Context, method, id string, body any) Result {
	target := c.endpoint
	if id != "" {
		target += "/" + url.PathEscape(id)
	}
	requestID := uuid.NewString()
	log := c.logger.With().
		Str("method", method).
		Str("url", target).
		Str("request_id", requestID).
		Logger()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode request body")
			return Fail(&Failure{Kind: KindTransport, Message: fmt.Sprintf("encode request: %v", err)})
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		log.Error().Err(err).Msg("failed to build request")
		return Fail(&Failure{Kind: KindTransport, Message: fmt.Sprintf("build request: %v", err)})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authorization(ctx))
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("request failed")
		return Fail(&Failure{Kind: KindTransport, Message: err.Error()})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		log.Error().Err(err).Int("status", resp.StatusCode).Msg("failed to read response")
		return Fail(&Failure{Kind: KindTransport, Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)})
	}
	if len(data) > maxResponseBytes {
		log.Error().Int("status", resp.StatusCode).Int("limit", maxResponseBytes).Msg("response too large")
		return Fail(&Failure{Kind: KindTransport, Status: resp.StatusCode, Message: "response too large"})
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	return classify(resp.StatusCode, data, log)
}

func (c *Client) authorization(ctx context.Context) string {
	var token string
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to read auth token, sending empty token")
		} else {
			token = t
		}
	}
	return c.prefix + " " + token
}

func classify(status int, data []byte, log zerolog.Logger) Result {
	body, isObject := parseErrorBody(data)

	if status < 200 || status >= 300 {
		failure := &Failure{Kind: KindServer, Status: status}
		if isObject {
			failure.Message = strings.TrimSpace(body.Message)
			failure.Fields = body.fields()
			failure.Validation = body.hasErrors()
		}
		log.Warn().Int("status", status).Str("message", failure.Message).Msg("server reported failure")
		return Fail(failure)
	}

	if isObject && body.signalsFailure() {
		failure := &Failure{
			Kind:    KindServer,
			Status:  status,
			Message:    strings.TrimSpace(body.Message),
			Fields:     body.fields(),
			Validation: body.hasErrors(),
		}
		log.Warn().Int("status", status).Str("message", failure.Message).Msg("server reported failure in body")
		return Fail(failure)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return Ok(nil)
	}
	return Ok(json.RawMessage(data))
}
