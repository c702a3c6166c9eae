package hass

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"
)

const userAgent = "HOWL-exporter/1.0 vs+howl@foldr.org"

// Config holds connection settings for one Home Assistant instance.
type Config struct {
	// URL is the full API base, e.g. "https://homeassistant.local:8123/api/".
	URL string

	// Token is a long-lived access token with admin privileges.
	Token string

	// CACertFile optionally points at a CA bundle for self-signed
	// installations. InsecureTLS disables verification entirely.
	CACertFile  string
	InsecureTLS bool

	// Timeout bounds each individual request. Zero means 30s.
	Timeout time.Duration
}

// Client talks to one Home Assistant instance. Construct one per
// export run; lookup memoization must not outlive a run.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	ws      *websocket.Conn
	wsSeq   int

	templates   map[string]string
	attrs       map[string]map[string]any
	states      []State
	services    map[string][]string
	autoConfigs map[string]map[string]any

	observeLatency func(endpoint string, seconds float64)
}

// New creates a client. Connect must be called before Devices; all
// other lookups work over plain HTTP.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: url and token are required", ErrRequest)
	}
	base := cfg.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	tlsCfg := &tls.Config{}
	if cfg.InsecureTLS {
		tlsCfg.InsecureSkipVerify = true
	} else if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA cert: %v", ErrRequest, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in %s", ErrRequest, cfg.CACertFile)
		}
		tlsCfg.RootCAs = pool
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		dialer: &websocket.Dialer{
			TLSClientConfig:  tlsCfg,
			HandshakeTimeout: timeout,
		},
		templates:   make(map[string]string),
		attrs:       make(map[string]map[string]any),
		autoConfigs: make(map[string]map[string]any),
	}, nil
}

// Connect opens and authenticates the WebSocket channel used for
// device registry queries.
func (c *Client) Connect(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "websocket"
	header := http.Header{"User-Agent": []string{userAgent}}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %v", ErrWebSocket, wsURL, err)
	}

	var hello struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "auth_required" {
		conn.Close()
		return fmt.Errorf("%w: unexpected hello frame (%v)", ErrWebSocket, err)
	}
	if err := conn.WriteJSON(wsRequest{Type: "auth", AccessToken: c.token}); err != nil {
		conn.Close()
		return fmt.Errorf("%w: sending auth: %v", ErrWebSocket, err)
	}
	var authResult struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&authResult); err != nil {
		conn.Close()
		return fmt.Errorf("%w: reading auth result: %v", ErrWebSocket, err)
	}
	if authResult.Type != "auth_ok" {
		conn.Close()
		return fmt.Errorf("%w: websocket auth rejected (%s)", ErrAuth, authResult.Type)
	}

	c.ws = conn
	c.wsSeq = 0
	return nil
}

// SetLatencyObserver registers a callback invoked with the endpoint
// path and wall time of every REST call. Memoized lookups never reach
// the observer, only requests that actually hit the network.
func (c *Client) SetLatencyObserver(fn func(endpoint string, seconds float64)) {
	c.observeLatency = fn
}

// Reset drops all memoized lookups so the next run re-reads the
// installation instead of replaying the previous snapshot.
func (c *Client) Reset() {
	c.templates = make(map[string]string)
	c.attrs = make(map[string]map[string]any)
	c.autoConfigs = make(map[string]map[string]any)
	c.states = nil
	c.services = nil
}

// Close releases the WebSocket channel.
func (c *Client) Close() error {
	if c.ws == nil {
		return nil
	}
	err := c.ws.Close()
	c.ws = nil
	return err
}

// Devices lists all device registry identifiers.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	if c.ws == nil {
		return nil, fmt.Errorf("%w: not connected", ErrWebSocket)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
		_ = c.ws.SetWriteDeadline(deadline)
	}
	c.wsSeq++
	if err := c.ws.WriteJSON(wsRequest{ID: c.wsSeq, Type: "config/device_registry/list"}); err != nil {
		return nil, fmt.Errorf("%w: sending registry query: %v", ErrWebSocket, err)
	}
	var resp wsResponse
	if err := c.ws.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("%w: reading registry result: %v", ErrWebSocket, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: registry query unsuccessful", ErrWebSocket)
	}
	ids := make([]string, 0, len(resp.Result))
	for _, r := range resp.Result {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// DeviceAttr looks up one device registry attribute. Absent attributes
// return the "None" sentinel, matching the template engine.
func (c *Client) DeviceAttr(ctx context.Context, deviceID, attr string) (string, error) {
	return c.template(ctx, fmt.Sprintf("device_attr(%q,%q)", deviceID, attr))
}

// DeviceEntities lists the entity ids registered under a device.
func (c *Client) DeviceEntities(ctx context.Context, deviceID string) ([]string, error) {
	text, err := c.template(ctx, fmt.Sprintf("device_entities(%q)", deviceID))
	if err != nil {
		return nil, err
	}
	var out []string
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: parsing entity list for %s: %v", ErrRequest, deviceID, err)
	}
	return out, nil
}

// DeviceID resolves the owning device of an entity, or "None".
func (c *Client) DeviceID(ctx context.Context, entityID string) (string, error) {
	return c.template(ctx, fmt.Sprintf("device_id(%q)", entityID))
}

// AreaID returns the area identifier a device is assigned to, or "None".
func (c *Client) AreaID(ctx context.Context, deviceID string) (string, error) {
	return c.template(ctx, fmt.Sprintf("area_id(%q)", deviceID))
}

// AreaName returns the display name of a device's area, or "None".
func (c *Client) AreaName(ctx context.Context, deviceID string) (string, error) {
	return c.template(ctx, fmt.Sprintf("area_name(%q)", deviceID))
}

// EntityAttributes returns the state attribute map of an entity.
// Entities without attributes yield an empty map, not an error.
func (c *Client) EntityAttributes(ctx context.Context, entityID string) (map[string]any, error) {
	if v, ok := c.attrs[entityID]; ok {
		return v, nil
	}
	var st State
	if err := c.getJSON(ctx, "states/"+entityID, &st); err != nil {
		return nil, err
	}
	if st.Attributes == nil {
		st.Attributes = map[string]any{}
	}
	c.attrs[entityID] = st.Attributes
	return st.Attributes, nil
}

// States returns the full state listing.
func (c *Client) States(ctx context.Context) ([]State, error) {
	if c.states != nil {
		return c.states, nil
	}
	var out []State
	if err := c.getJSON(ctx, "states", &out); err != nil {
		return nil, err
	}
	c.states = out
	return out, nil
}

// Services returns the service catalog as domain -> sorted service
// names. Sorting keeps graph output deterministic across runs.
func (c *Client) Services(ctx context.Context) (map[string][]string, error) {
	if c.services != nil {
		return c.services, nil
	}
	var domains []serviceDomain
	if err := c.getJSON(ctx, "services", &domains); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(domains))
	for _, d := range domains {
		names := make([]string, 0, len(d.Services))
		for name := range d.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		out[d.Domain] = names
	}
	c.services = out
	return out, nil
}

// AutomationConfig fetches the full trigger/condition/action config of
// one automation.
func (c *Client) AutomationConfig(ctx context.Context, automationID string) (map[string]any, error) {
	if v, ok := c.autoConfigs[automationID]; ok {
		return v, nil
	}
	var out map[string]any
	if err := c.getJSON(ctx, "config/automation/config/"+automationID, &out); err != nil {
		return nil, err
	}
	c.autoConfigs[automationID] = out
	return out, nil
}

// template renders "{{ query }}" server-side and returns the raw text.
func (c *Client) template(ctx context.Context, query string) (string, error) {
	if v, ok := c.templates[query]; ok {
		return v, nil
	}
	body, err := json.Marshal(map[string]string{"template": "{{ " + query + " }}"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"template", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	c.setHeaders(req)
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.observeLatency != nil {
		c.observeLatency("template", time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: the token lacks the admin privileges template queries need", ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: template query returned %d: %s", ErrRequest, resp.StatusCode, text)
	}
	v := strings.TrimSpace(string(text))
	c.templates[query] = v
	return v, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	c.setHeaders(req)
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.observeLatency != nil {
		// First path segment only, so per-entity paths don't explode
		// the tag cardinality downstream.
		c.observeLatency(strings.SplitN(path, "/", 2)[0], time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: token rejected for %s", ErrAuth, path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: GET %s returned %d: %s", ErrRequest, path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrRequest, path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
}
