// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/penny-vault/pvfundamentals/data"
)

const DefaultBaseURL = "https://eodhistoricaldata.com/api"

var (
	// ErrNotFound indicates the remote source has no record for the ticker.
	ErrNotFound = errors.New("symbol not found")

	ErrInvalidStatusCode = errors.New("invalid status code received")
)

type apiError struct {
	Message string `json:"message"`
	Errors  string `json:"errors"`
}

// Client wraps the EODHD fundamentals REST API. Transient failures are
// retried with exponential backoff inside resty; callers see only the final
// outcome.
type Client struct {
	baseURL string
	resty   *resty.Client
	limiter *rate.Limiter
}

type Config struct {
	Token string

	// BaseURL overrides the production API endpoint; used by tests.
	BaseURL string

	// RateLimit is the maximum number of requests per minute. Zero disables
	// client-side throttling.
	RateLimit int

	// MaxRetries bounds the number of retry attempts for transient failures.
	MaxRetries int
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	client := resty.New().
		SetQueryParam("api_token", cfg.Token).
		SetQueryParam("fmt", "json").
		SetHeader("Accept", "*/*").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests ||
				resp.StatusCode() >= 500
		})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/float64(61)), 1)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		resty:   client,
		limiter: limiter,
	}
}

// Fundamentals retrieves the full fundamentals document for a single ticker.
// A 404 from the API maps to ErrNotFound; every other failure is wrapped in
// ErrInvalidStatusCode or returned as-is.
func (client *Client) Fundamentals(ctx context.Context, ticker string) (*data.Payload, error) {
	logger := zerolog.Ctx(ctx)

	if client.limiter != nil {
		if err := client.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := fmt.Sprintf("%s/fundamentals/%s", client.baseURL, ticker)

	resp, err := client.resty.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		logger.Error().Err(err).Str("Ticker", ticker).Msg("resty returned an error when querying fundamentals")
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}

	if resp.StatusCode() >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w (%d): %s", ErrInvalidStatusCode, resp.StatusCode(), apiErr.Message)
		}
		return nil, fmt.Errorf("%w (%d): %s", ErrInvalidStatusCode, resp.StatusCode(), string(resp.Body()))
	}

	return &data.Payload{
		Ticker: ticker,
		Body:   resp.Body(),
	}, nil
}
