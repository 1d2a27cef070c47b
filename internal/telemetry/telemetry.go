/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in sender for anonymous usage events and
// crash reports. Nothing is sent unless PLB_TELEMETRY_OPT_IN is set and an
// endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "plotboard/internal/log"
	"plotboard/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "PLB_TELEMETRY_OPT_IN"
	EnvEventsURL = "PLB_TELEMETRY_URL"
	EnvCrashURL  = "PLB_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "PLB_TELEMETRY_TIMEOUT_MS"
)

type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   1500 * time.Millisecond,
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMs)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client sends events from a background goroutine over a bounded queue and
// drops them when the queue is full or the endpoint fails.
type Client struct {
	cfg  Config
	log  *slog.Logger
	cli  *http.Client
	q    chan map[string]any
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(cfg Config) *Client {
	c := &Client{
		cfg: cfg,
		log: applog.WithComponent("telemetry"),
		cli: &http.Client{Timeout: cfg.Timeout},
		q:   make(chan map[string]any, 64),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event. props must not carry story content.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.q <- payload:
	default:
	}
}

// Close stops accepting events and waits for queued ones to be sent or ctx
// to end.
func (c *Client) Close(ctx context.Context) {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.q)
	}
	c.mu.Unlock()
	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (c *Client) loop() {
	defer c.wg.Done()
	for item := range c.q {
		buf, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if err := c.post(context.Background(), c.cfg.EventsURL, "application/json", buf); err != nil {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: %s", url, resp.Status)
	}
	return nil
}

// UploadCrash posts a crash report when crash uploads are opted into. It
// blocks until the upload finishes because the process exits right after.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		return fmt.Errorf("crash upload: %w", err)
	}
	c.log.Debug("crash report uploaded")
	return nil
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns the process client configured from the environment.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
	return defaultClient
}
