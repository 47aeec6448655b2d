package jellyfin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts.ServerURL = server.URL
	if opts.UserID == "" {
		opts.UserID = "user-1"
	}
	if opts.AccessToken == "" {
		opts.AccessToken = "secret"
	}
	if opts.DeviceID == "" {
		opts.DeviceID = "device-1"
	}
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultServerURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultServerURL)
	}

	u, err = parseBaseURL("media.local:8096/jellyfin/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Path != "/jellyfin" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestAuthorizationHeader(t *testing.T) {
	got := authorization("usher", "laptop", "dev-9", "1.2.3", "tok")
	want := `MediaBrowser Client="usher", Device="laptop", DeviceId="dev-9", Version="1.2.3", Token="tok"`
	if got != want {
		t.Fatalf("authorization = %q\nwant %q", got, want)
	}
	if strings.Contains(authorization("usher", "laptop", "dev-9", "1.2.3", ""), "Token") {
		t.Fatal("empty token must be omitted")
	}
}

func TestGetItems_EncodesQuery(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotQuery url.Values
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(ItemsResult{Items: []Item{{ID: "a", Name: "Alpha"}}, TotalRecordCount: 1})
	}), Options{})

	res, err := c.GetItems(testContext(t), ItemsQuery{
		ParentID:         "lib",
		IncludeItemTypes: []string{"Movie", " Series "},
		SortBy:           []string{SortName},
		SortOrder:        Ascending,
		Fields:           []string{"Tags", ""},
		SearchTerm:       "  star ",
		Recursive:        true,
		StartIndex:       100,
		Limit:            50,
	})
	if err != nil {
		t.Fatalf("GetItems returned error: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "Alpha" {
		t.Fatalf("items = %#v", res.Items)
	}
	if gotPath != "/Users/user-1/Items" {
		t.Fatalf("path = %q", gotPath)
	}
	checks := map[string]string{
		"ParentId":         "lib",
		"IncludeItemTypes": "Movie,Series",
		"SortBy":           "SortName",
		"SortOrder":        "Ascending",
		"Fields":           "Tags",
		"SearchTerm":       "star",
		"Recursive":        "true",
		"StartIndex":       "100",
		"Limit":            "50",
	}
	for key, want := range checks {
		if got := gotQuery.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if !strings.Contains(gotAuth, `Token="secret"`) || !strings.Contains(gotAuth, `DeviceId="device-1"`) {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestGetItems_FirstPageOmitsStartIndex(t *testing.T) {
	values := ItemsQuery{Limit: 50}.values()
	if values.Has("StartIndex") {
		t.Fatalf("StartIndex should be omitted for 0, got %q", values.Encode())
	}
}

func TestBasePathIsPreserved(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(DevicesResult{})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{ServerURL: server.URL + "/jellyfin/"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.GetDevices(testContext(t)); err != nil {
		t.Fatalf("GetDevices returned error: %v", err)
	}
	if gotPath != "/jellyfin/Devices" {
		t.Fatalf("path = %q, want /jellyfin/Devices", gotPath)
	}
}

func TestUpdateItem_PostsJSON(t *testing.T) {
	t.Parallel()

	var got Item
	var gotMethod, gotPath, gotType string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}), Options{})

	item := Item{ID: "abc", Name: "Alpha", Tags: []string{"noir"}, Studios: []NameIDPair{{Name: "A24", ID: "s1"}}}
	if err := c.UpdateItem(testContext(t), item); err != nil {
		t.Fatalf("UpdateItem returned error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/Items/abc" || gotType != "application/json" {
		t.Fatalf("request = %s %s (%s)", gotMethod, gotPath, gotType)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "noir" || got.Studios[0].Name != "A24" {
		t.Fatalf("body = %#v", got)
	}
}

func TestDeviceEndpoints(t *testing.T) {
	t.Parallel()

	var deleted []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"Items":[{"Id":"d1","Name":"TV","DateLastActivity":"2024-05-01T10:00:00.0000000Z"}],"TotalRecordCount":1}`)
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Query().Get("id"))
			w.WriteHeader(http.StatusNoContent)
		}
	}), Options{})

	ctx := testContext(t)
	devices, err := c.GetDevices(ctx)
	if err != nil {
		t.Fatalf("GetDevices returned error: %v", err)
	}
	if len(devices) != 1 || devices[0].DateLastActivity == nil || devices[0].DateLastActivity.Hour() != 10 {
		t.Fatalf("devices = %#v", devices)
	}
	if err := c.DeleteDevice(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDevice returned error: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "d1" {
		t.Fatalf("deleted = %v", deleted)
	}
}

func TestUploadProfileImage_Base64Body(t *testing.T) {
	t.Parallel()

	var gotBody, gotType, gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody, gotType, gotPath = string(raw), r.Header.Get("Content-Type"), r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}), Options{})

	data := []byte{0x89, 'P', 'N', 'G'}
	if err := c.UploadProfileImage(testContext(t), data, "image/png"); err != nil {
		t.Fatalf("UploadProfileImage returned error: %v", err)
	}
	if gotPath != "/Users/user-1/Images/Primary" || gotType != "image/png" {
		t.Fatalf("request = %s (%s)", gotPath, gotType)
	}
	if gotBody != base64.StdEncoding.EncodeToString(data) {
		t.Fatalf("body = %q", gotBody)
	}

	err := c.UploadProfileImage(testContext(t), data, "text/plain")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestTaskEndpoints(t *testing.T) {
	t.Parallel()

	var calls []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode([]TaskInfo{{ID: "t1", Name: "Scan", State: TaskRunning}})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), Options{})

	ctx := testContext(t)
	tasks, err := c.GetScheduledTasks(ctx)
	if err != nil || len(tasks) != 1 || !tasks[0].Running() {
		t.Fatalf("GetScheduledTasks = %#v, %v", tasks, err)
	}
	if err := c.StartTask(ctx, "t1"); err != nil {
		t.Fatalf("StartTask returned error: %v", err)
	}
	if err := c.StopTask(ctx, "t1"); err != nil {
		t.Fatalf("StopTask returned error: %v", err)
	}
	want := []string{"GET /ScheduledTasks", "POST /ScheduledTasks/Running/t1", "DELETE /ScheduledTasks/Running/t1"}
	if strings.Join(calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestPlaybackInfoAndStreamURL(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/Items/m1/PlaybackInfo" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(PlaybackInfo{
			MediaSources:  []MediaSource{{ID: "src", Container: "mkv"}},
			PlaySessionID: "ps",
		})
	}), Options{})

	info, err := c.GetPlaybackInfo(testContext(t), "m1")
	if err != nil {
		t.Fatalf("GetPlaybackInfo returned error: %v", err)
	}
	u := c.StreamURL("m1", info.MediaSources[0], info.PlaySessionID)
	if u.Path != "/Videos/m1/stream.mkv" {
		t.Fatalf("stream path = %q", u.Path)
	}
	q := u.Query()
	if q.Get("static") != "true" || q.Get("MediaSourceId") != "src" || q.Get("api_key") != "secret" || q.Get("PlaySessionId") != "ps" {
		t.Fatalf("stream query = %q", u.RawQuery)
	}
}

func TestServerErrorCarriesStatusAndMessage(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"title":"Not Found","detail":"Item not found"}`)
	}), Options{})

	_, err := c.GetItem(testContext(t), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Kind != KindServer || apiErr.Status != 404 || apiErr.Message != "Item not found" {
		t.Fatalf("error = %#v", apiErr)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound should match")
	}
}

func TestRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]SessionInfo{{ID: "s1", UserName: "ana"}})
	}), Options{MaxRetries: 3, RetryWaitMin: time.Millisecond, RetryWaitMax: 5 * time.Millisecond})

	sessions, err := c.GetSessions(testContext(t), 0)
	if err != nil {
		t.Fatalf("GetSessions returned error: %v", err)
	}
	if len(sessions) != 1 || attempts.Load() != 3 {
		t.Fatalf("sessions = %d, attempts = %d", len(sessions), attempts.Load())
	}
}

func TestDecodeErrorKind(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}), Options{})

	_, err := c.GetDevices(testContext(t))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestCancelledContextUnwraps(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetDevices(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMissingUserIsPrecondition(t *testing.T) {
	c, err := NewClient(Options{ServerURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.GetItems(context.Background(), ItemsQuery{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestItemHelpers(t *testing.T) {
	ep := Item{Name: "Pilot", SeriesName: "Show", Type: "Episode", RunTimeTicks: 90 * TicksPerSecond}
	if ep.DisplayName() != "Show - Pilot" {
		t.Fatalf("DisplayName = %q", ep.DisplayName())
	}
	if ep.RunTime() != 90*time.Second {
		t.Fatalf("RunTime = %v", ep.RunTime())
	}
	if ep.Played() {
		t.Fatal("Played should be false without user data")
	}
}

func TestFiltersAndStudios(t *testing.T) {
	t.Parallel()

	var studioQuery url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Items/Filters":
			_ = json.NewEncoder(w).Encode(QueryFilters{Tags: []string{"noir", "heist"}})
		case "/Studios":
			studioQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(ItemsResult{Items: []Item{{ID: "s1", Name: "A24"}}})
		default:
			http.NotFound(w, r)
		}
	}), Options{})

	ctx := testContext(t)
	filters, err := c.GetQueryFilters(ctx, "")
	if err != nil || len(filters.Tags) != 2 {
		t.Fatalf("GetQueryFilters = %#v, %v", filters, err)
	}
	studios, err := c.GetStudios(ctx, StudiosQuery{ParentID: "lib", SearchTerm: "a2"})
	if err != nil {
		t.Fatalf("GetStudios returned error: %v", err)
	}
	if len(studios) != 1 || studios[0] != (NameIDPair{Name: "A24", ID: "s1"}) {
		t.Fatalf("studios = %#v", studios)
	}
	if studioQuery.Get("ParentId") != "lib" || studioQuery.Get("SearchTerm") != "a2" || studioQuery.Get("UserId") != "user-1" {
		t.Fatalf("studio query = %v", studioQuery)
	}
}
