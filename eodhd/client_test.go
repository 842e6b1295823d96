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
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"
)

func testServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/fundamentals/AAPL", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"General": {"Name": "Apple Inc"}}`))
	})

	mux.HandleFunc("/fundamentals/GONE", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/fundamentals/LIMITED", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message": "plan limit exceeded"}`))
	})

	return httptest.NewServer(mux)
}

func TestFundamentals(t *testing.T) {
	g := NewWithT(t)

	server := testServer()
	defer server.Close()

	client := New(Config{Token: "test-token", BaseURL: server.URL, MaxRetries: 1})

	payload, err := client.Fundamentals(context.Background(), "AAPL")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(payload.Ticker).To(Equal("AAPL"))
	g.Expect(string(payload.Body)).To(ContainSubstring("Apple Inc"))
}

func TestFundamentalsNotFound(t *testing.T) {
	g := NewWithT(t)

	server := testServer()
	defer server.Close()

	client := New(Config{Token: "test-token", BaseURL: server.URL, MaxRetries: 1})

	payload, err := client.Fundamentals(context.Background(), "GONE")
	g.Expect(payload).To(BeNil())
	g.Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
}

func TestFundamentalsAPIError(t *testing.T) {
	g := NewWithT(t)

	server := testServer()
	defer server.Close()

	client := New(Config{Token: "test-token", BaseURL: server.URL, MaxRetries: 1})

	payload, err := client.Fundamentals(context.Background(), "LIMITED")
	g.Expect(payload).To(BeNil())
	g.Expect(errors.Is(err, ErrInvalidStatusCode)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("plan limit exceeded"))
}
