/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"planmarkup/internal/storage"
)

// Client talks to the markup server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient normalizes a trailing slash on baseURL.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// StatusError is a non-2xx server answer.
type StatusError struct {
	Method, Path string
	Code         int
	Status       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server %s %s: %s", e.Method, e.Path, e.Status)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Status: resp.Status}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Login asks the server for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, subject string) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", map[string]any{"subject": subject}, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("server returned an empty token")
	}
	c.Token = out.Token
	return nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var list []DocumentInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// FetchMarkup returns the latest shared markup of a document and its
// version, validated like a local import.
func (c *Client) FetchMarkup(ctx context.Context, docID string) (storage.Interchange, int64, error) {
	var env MarkupEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(docID)+"/markup", nil, &env); err != nil {
		return storage.Interchange{}, 0, err
	}
	ic, err := storage.ReadInterchange(bytes.NewReader(env.Markup))
	if err != nil {
		return storage.Interchange{}, 0, err
	}
	return ic, env.Version, nil
}

// PushMarkup uploads ic on top of baseVersion and returns the new version.
// Pass a negative baseVersion to overwrite regardless.
func (c *Client) PushMarkup(ctx context.Context, docID string, ic storage.Interchange, baseVersion int64) (int64, error) {
	var buf bytes.Buffer
	if err := storage.WriteInterchange(&buf, ic); err != nil {
		return 0, err
	}
	var out MarkupEnvelope
	in := MarkupEnvelope{DocumentID: docID, BaseVersion: baseVersion, Markup: buf.Bytes()}
	if err := c.doJSON(ctx, http.MethodPut, "/api/documents/"+url.PathEscape(docID)+"/markup", in, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}
