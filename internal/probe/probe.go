// Package probe checks whether the ComfyUI server on a deployed instance is
// up. It reads the server's /system_stats endpoint and waits for the status
// message the server pushes to every new websocket client.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultTimeout = 10 * time.Second

// ErrNotReady is returned when the server does not answer like ComfyUI.
var ErrNotReady = errors.New("comfyui is not ready")

// SystemStats is the payload of /system_stats.
type SystemStats struct {
	System  System   `json:"system"`
	Devices []Device `json:"devices"`
}

type System struct {
	OS             string `json:"os"`
	PythonVersion  string `json:"python_version"`
	EmbeddedPython bool   `json:"embedded_python"`
	ComfyUIVersion string `json:"comfyui_version,omitempty"`
	PyTorchVersion string `json:"pytorch_version,omitempty"`
	RAMTotal       int64  `json:"ram_total,omitempty"`
	RAMFree        int64  `json:"ram_free,omitempty"`
}

// Device is one compute device visible to the server.
type Device struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Index          int    `json:"index"`
	VRAMTotal      int64  `json:"vram_total"`
	VRAMFree       int64  `json:"vram_free"`
	TorchVRAMTotal int64  `json:"torch_vram_total"`
	TorchVRAMFree  int64  `json:"torch_vram_free"`
}

// HasGPU reports whether a CUDA device is visible.
func (s *SystemStats) HasGPU() bool {
	for _, d := range s.Devices {
		if d.Type == "cuda" {
			return true
		}
	}
	return false
}

// QueueStatus is the data of the websocket "status" message.
type QueueStatus struct {
	SessionID      string
	QueueRemaining int
}

// Report is the combined result of a probe.
type Report struct {
	Endpoint string
	Stats    *SystemStats
	Queue    *QueueStatus
	Latency  time.Duration
}

// Prober talks to one ComfyUI server.
type Prober struct {
	base   *url.URL
	client *http.Client
	dialer *websocket.Dialer
}

// New returns a prober for endpoint, given as host:port or as a URL.
func New(endpoint string) (*Prober, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("probe: endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("probe: invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("probe: endpoint %q has no host", endpoint)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	return &Prober{
		base:   u,
		client: &http.Client{Timeout: defaultTimeout},
		dialer: &websocket.Dialer{HandshakeTimeout: defaultTimeout},
	}, nil
}

// URL returns the browser address of the server.
func (p *Prober) URL() string {
	return p.base.String()
}

// SystemStats fetches /system_stats.
func (p *Prober) SystemStats(ctx context.Context) (*SystemStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base.String()+"/system_stats", nil)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe: %w: %w", ErrNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("probe: %w: /system_stats returned %d: %s", ErrNotReady, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var stats SystemStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("probe: %w: decode /system_stats: %w", ErrNotReady, err)
	}
	return &stats, nil
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsStatusData struct {
	Status struct {
		ExecInfo struct {
			QueueRemaining int `json:"queue_remaining"`
		} `json:"exec_info"`
	} `json:"status"`
	SID string `json:"sid"`
}

// Queue connects to the websocket with a fresh client ID and returns the
// first status message. Other message types are skipped.
func (p *Prober) Queue(ctx context.Context) (*QueueStatus, error) {
	wsURL := *p.base
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/ws"
	wsURL.RawQuery = url.Values{"clientId": {uuid.NewString()}}.Encode()

	conn, _, err := p.dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("probe: %w: websocket: %w", ErrNotReady, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(defaultTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("probe: %w: waiting for status: %w", ErrNotReady, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "status" {
			continue
		}
		var status wsStatusData
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			return nil, fmt.Errorf("probe: decode status message: %w", err)
		}
		return &QueueStatus{SessionID: status.SID, QueueRemaining: status.Status.ExecInfo.QueueRemaining}, nil
	}
}

// Check runs both probes.
func (p *Prober) Check(ctx context.Context) (*Report, error) {
	start := time.Now()
	stats, err := p.SystemStats(ctx)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	queue, err := p.Queue(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{Endpoint: p.URL(), Stats: stats, Queue: queue, Latency: latency}, nil
}
