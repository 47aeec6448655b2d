package jellyfin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/five82/usher/internal/log"
)

const (
	defaultServerURL  = "http://127.0.0.1:8096"
	defaultClientName = "usher"
	defaultDeviceName = "usher"
	defaultVersion    = "0.1.0"
	defaultTimeout    = 10 * time.Second
	maxErrorBody      = 4 << 10
)

// Options configures a Client.
type Options struct {
	ServerURL   string
	UserID      string
	AccessToken string
	DeviceID    string
	DeviceName  string
	Version     string
	// Timeout bounds a single attempt; zero uses 10s.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	// MaxRetries is how often transport failures and 5xx responses are retried.
	MaxRetries int
	// RetryWaitMin and RetryWaitMax bound the backoff between retries.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client talks to the media server HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	auth      string
	userAgent string
	userID    string
	deviceID  string
	token     string
	logger    zerolog.Logger
}

// NewClient builds a Client. The user id and access token may be empty for
// read-only probing, but most calls require both.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.ServerURL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := log.WithComponent("jellyfin").With().Str(log.FieldBaseURL, base.String()).Logger()

	retry := retryablehttp.NewClient()
	retry.HTTPClient = &http.Client{Timeout: timeout}
	retry.RetryMax = max(opts.MaxRetries, 0)
	if opts.RetryWaitMin > 0 {
		retry.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retry.RetryWaitMax = opts.RetryWaitMax
	}
	retry.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retry.Logger = &retryLogger{logger: logger}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(int(opts.RequestsPerSecond), 1)

	version := firstNonEmpty(opts.Version, defaultVersion)
	c := &Client{
		baseURL:   base,
		http:      retry.StandardClient(),
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: defaultClientName + "/" + version,
		userID:    strings.TrimSpace(opts.UserID),
		deviceID:  strings.TrimSpace(opts.DeviceID),
		token:     strings.TrimSpace(opts.AccessToken),
		logger:    logger,
	}
	c.auth = authorization(defaultClientName, firstNonEmpty(opts.DeviceName, defaultDeviceName), c.deviceID, version, c.token)
	return c, nil
}

// UserID returns the signed-in user.
func (c *Client) UserID() string { return c.userID }

// DeviceID returns the id this client reports to the server.
func (c *Client) DeviceID() string { return c.deviceID }

// BaseURL returns the server root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

func authorization(client, device, deviceID, version, token string) string {
	parts := []string{
		fmt.Sprintf("Client=%q", client),
		fmt.Sprintf("Device=%q", device),
		fmt.Sprintf("DeviceId=%q", deviceID),
		fmt.Sprintf("Version=%q", version),
	}
	if token != "" {
		parts = append(parts, fmt.Sprintf("Token=%q", token))
	}
	return "MediaBrowser " + strings.Join(parts, ", ")
}

// GetItems lists the user's items.
func (c *Client) GetItems(ctx context.Context, query ItemsQuery) (ItemsResult, error) {
	if err := c.requireUser(); err != nil {
		return ItemsResult{}, err
	}
	rel := &url.URL{Path: c.userPath("Items"), RawQuery: query.values().Encode()}
	var payload ItemsResult
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return ItemsResult{}, err
	}
	return payload, nil
}

// GetItem reads a single item with the user's data attached.
func (c *Client) GetItem(ctx context.Context, itemID string) (Item, error) {
	if err := c.requireUser(); err != nil {
		return Item{}, err
	}
	if strings.TrimSpace(itemID) == "" {
		return Item{}, precondition("item id required")
	}
	var payload Item
	if err := c.do(ctx, http.MethodGet, c.userPath("Items", itemID), nil, &payload); err != nil {
		return Item{}, err
	}
	return payload, nil
}

// UpdateItem replaces the editable metadata of an item.
func (c *Client) UpdateItem(ctx context.Context, item Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return precondition("item id required")
	}
	return c.do(ctx, http.MethodPost, "/Items/"+item.ID, item, nil)
}

// GetQueryFilters returns the genres, tags and years used below parentID.
func (c *Client) GetQueryFilters(ctx context.Context, parentID string) (QueryFilters, error) {
	values := url.Values{}
	if c.userID != "" {
		values.Set("UserId", c.userID)
	}
	if parentID = strings.TrimSpace(parentID); parentID != "" {
		values.Set("ParentId", parentID)
	}
	rel := &url.URL{Path: "/Items/Filters", RawQuery: values.Encode()}
	var payload QueryFilters
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return QueryFilters{}, err
	}
	return payload, nil
}

// StudiosQuery configures studio listings.
type StudiosQuery struct {
	ParentID   string
	SearchTerm string
	Limit      int
}

// GetStudios lists studios, optionally below a parent and filtered by a
// search term.
func (c *Client) GetStudios(ctx context.Context, query StudiosQuery) ([]NameIDPair, error) {
	values := url.Values{}
	if c.userID != "" {
		values.Set("UserId", c.userID)
	}
	if parentID := strings.TrimSpace(query.ParentID); parentID != "" {
		values.Set("ParentId", parentID)
	}
	if term := strings.TrimSpace(query.SearchTerm); term != "" {
		values.Set("SearchTerm", term)
	}
	if query.Limit > 0 {
		values.Set("Limit", strconv.Itoa(query.Limit))
	}
	rel := &url.URL{Path: "/Studios", RawQuery: values.Encode()}
	var payload ItemsResult
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return nil, err
	}
	studios := make([]NameIDPair, 0, len(payload.Items))
	for _, it := range payload.Items {
		studios = append(studios, NameIDPair{Name: it.Name, ID: it.ID})
	}
	return studios, nil
}

// RefreshItem asks the server to refresh an item's metadata. The server
// queues the work and answers before it completes.
func (c *Client) RefreshItem(ctx context.Context, itemID string, opts RefreshOptions) error {
	if strings.TrimSpace(itemID) == "" {
		return precondition("item id required")
	}
	values := url.Values{}
	values.Set("MetadataRefreshMode", firstNonEmpty(opts.MetadataRefreshMode, RefreshDefault))
	values.Set("ImageRefreshMode", firstNonEmpty(opts.ImageRefreshMode, RefreshDefault))
	values.Set("ReplaceAllMetadata", strconv.FormatBool(opts.ReplaceAllMetadata))
	values.Set("ReplaceAllImages", strconv.FormatBool(opts.ReplaceAllImages))
	rel := &url.URL{Path: "/Items/" + itemID + "/Refresh", RawQuery: values.Encode()}
	return c.doURL(ctx, http.MethodPost, rel, nil, "", nil)
}

// GetDevices lists the devices known to the server.
func (c *Client) GetDevices(ctx context.Context) ([]DeviceInfo, error) {
	var payload DevicesResult
	if err := c.do(ctx, http.MethodGet, "/Devices", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// DeleteDevice removes a device and signs out its sessions.
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return precondition("device id required")
	}
	values := url.Values{}
	values.Set("id", deviceID)
	rel := &url.URL{Path: "/Devices", RawQuery: values.Encode()}
	return c.doURL(ctx, http.MethodDelete, rel, nil, "", nil)
}

// UploadProfileImage replaces the user's primary image. The server expects
// the image base64 encoded with the image's own content type.
func (c *Client) UploadProfileImage(ctx context.Context, data []byte, contentType string) error {
	if err := c.requireUser(); err != nil {
		return err
	}
	if len(data) == 0 {
		return precondition("image data required")
	}
	contentType = strings.TrimSpace(contentType)
	if !strings.HasPrefix(contentType, "image/") {
		return precondition(fmt.Sprintf("unsupported content type %q", contentType))
	}
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(encoded, data)
	rel := &url.URL{Path: "/Users/" + c.userID + "/Images/Primary"}
	return c.doURL(ctx, http.MethodPost, rel, encoded, contentType, nil)
}

// GetScheduledTasks lists the server's scheduled tasks.
func (c *Client) GetScheduledTasks(ctx context.Context) ([]TaskInfo, error) {
	values := url.Values{}
	values.Set("IsHidden", "false")
	rel := &url.URL{Path: "/ScheduledTasks", RawQuery: values.Encode()}
	var payload []TaskInfo
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// StartTask starts a scheduled task.
func (c *Client) StartTask(ctx context.Context, taskID string) error {
	if strings.TrimSpace(taskID) == "" {
		return precondition("task id required")
	}
	return c.do(ctx, http.MethodPost, "/ScheduledTasks/Running/"+taskID, nil, nil)
}

// StopTask cancels a running scheduled task.
func (c *Client) StopTask(ctx context.Context, taskID string) error {
	if strings.TrimSpace(taskID) == "" {
		return precondition("task id required")
	}
	return c.do(ctx, http.MethodDelete, "/ScheduledTasks/Running/"+taskID, nil, nil)
}

// RestartServer asks the server process to restart.
func (c *Client) RestartServer(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/System/Restart", nil, nil)
}

// ShutdownServer asks the server process to exit.
func (c *Client) ShutdownServer(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/System/Shutdown", nil, nil)
}

// GetSessions lists sessions active within the given window.
func (c *Client) GetSessions(ctx context.Context, activeWithin time.Duration) ([]SessionInfo, error) {
	values := url.Values{}
	if activeWithin > 0 {
		values.Set("ActiveWithinSeconds", strconv.Itoa(int(activeWithin/time.Second)))
	}
	rel := &url.URL{Path: "/Sessions", RawQuery: values.Encode()}
	var payload []SessionInfo
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetNextUp lists the next unwatched episode of each series in progress.
func (c *Client) GetNextUp(ctx context.Context, query PageQuery) (ItemsResult, error) {
	if err := c.requireUser(); err != nil {
		return ItemsResult{}, err
	}
	values := query.values()
	values.Set("UserId", c.userID)
	rel := &url.URL{Path: "/Shows/NextUp", RawQuery: values.Encode()}
	var payload ItemsResult
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return ItemsResult{}, err
	}
	return payload, nil
}

// GetResume lists partially watched items.
func (c *Client) GetResume(ctx context.Context, query PageQuery) (ItemsResult, error) {
	if err := c.requireUser(); err != nil {
		return ItemsResult{}, err
	}
	rel := &url.URL{Path: c.userPath("Items", "Resume"), RawQuery: query.values().Encode()}
	var payload ItemsResult
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return ItemsResult{}, err
	}
	return payload, nil
}

// MarkPlayed marks an item played for the user.
func (c *Client) MarkPlayed(ctx context.Context, itemID string) error {
	return c.setPlayed(ctx, http.MethodPost, itemID)
}

// MarkUnplayed clears the item's played flag for the user.
func (c *Client) MarkUnplayed(ctx context.Context, itemID string) error {
	return c.setPlayed(ctx, http.MethodDelete, itemID)
}

func (c *Client) setPlayed(ctx context.Context, method, itemID string) error {
	if err := c.requireUser(); err != nil {
		return err
	}
	if strings.TrimSpace(itemID) == "" {
		return precondition("item id required")
	}
	return c.do(ctx, method, c.userPath("PlayedItems", itemID), nil, nil)
}

// GetPlaybackInfo resolves the media sources of an item.
func (c *Client) GetPlaybackInfo(ctx context.Context, itemID string) (PlaybackInfo, error) {
	if err := c.requireUser(); err != nil {
		return PlaybackInfo{}, err
	}
	if strings.TrimSpace(itemID) == "" {
		return PlaybackInfo{}, precondition("item id required")
	}
	values := url.Values{}
	values.Set("UserId", c.userID)
	rel := &url.URL{Path: "/Items/" + itemID + "/PlaybackInfo", RawQuery: values.Encode()}
	var payload PlaybackInfo
	if err := c.doURL(ctx, http.MethodPost, rel, struct{}{}, "", &payload); err != nil {
		return PlaybackInfo{}, err
	}
	if payload.ErrorCode != "" {
		return PlaybackInfo{}, &APIError{Kind: KindServer, Path: rel.Path, Message: payload.ErrorCode}
	}
	return payload, nil
}

// StreamURL builds a static stream URL for a media source. Players cannot
// send the auth header, so the token travels as a query parameter.
func (c *Client) StreamURL(itemID string, source MediaSource, playSessionID string) *url.URL {
	values := url.Values{}
	values.Set("static", "true")
	if source.ID != "" {
		values.Set("MediaSourceId", source.ID)
	}
	if c.deviceID != "" {
		values.Set("DeviceId", c.deviceID)
	}
	if playSessionID != "" {
		values.Set("PlaySessionId", playSessionID)
	}
	if c.token != "" {
		values.Set("api_key", c.token)
	}
	path := "/Videos/" + itemID + "/stream"
	if source.Container != "" {
		path += "." + source.Container
	}
	return c.resolve(&url.URL{Path: path, RawQuery: values.Encode()})
}

// resolve appends rel to the base URL, keeping any base path.
func (c *Client) resolve(rel *url.URL) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + rel.Path
	u.RawQuery = rel.RawQuery
	return &u
}

func (c *Client) userPath(parts ...string) string {
	segments := append([]string{"", "Users", c.userID}, parts...)
	return strings.Join(segments, "/")
}

func (c *Client) requireUser() error {
	if c == nil {
		return precondition("client is nil")
	}
	if c.userID == "" {
		return precondition("user id not configured")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	return c.doURL(ctx, method, &url.URL{Path: path}, body, "", dest)
}

// doURL sends one request. body is JSON encoded unless it is a []byte, which
// is sent as is with contentType.
func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body any, contentType string, dest any) error {
	if c == nil {
		return precondition("client is nil")
	}
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return &APIError{Kind: KindDecode, Path: rel.Path, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(rel).String(), reader)
	if err != nil {
		return &APIError{Kind: KindTransport, Path: rel.Path, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", c.auth)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Kind: KindTransport, Path: rel.Path, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransport, Path: rel.Path, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().
		Str(log.FieldMethod, method).
		Str(log.FieldPath, rel.Path).
		Int(log.FieldStatus, resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Path: rel.Path, Message: errorMessage(raw)}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &APIError{Kind: KindDecode, Path: rel.Path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts something readable from an error body, which the
// server sends as plain text or as a problem-details document.
func errorMessage(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &problem) == nil {
		if problem.Detail != "" {
			return problem.Detail
		}
		if problem.Title != "" {
			return problem.Title
		}
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

func parseBaseURL(server string) (*url.URL, error) {
	trimmed := strings.TrimSpace(server)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", server, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server_url %q: missing host", server)
	}
	// Servers behind a reverse proxy often live below a base path.
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
