package jellyfin

import (
	"strings"
	"time"
)

// TicksPerSecond converts server run-time ticks (100ns units) to seconds.
const TicksPerSecond = 10_000_000

// Item mirrors the subset of BaseItemDto usher reads and edits.
type Item struct {
	ID                string         `json:"Id"`
	Name              string         `json:"Name"`
	Type              string         `json:"Type,omitempty"`
	ParentID          string         `json:"ParentId,omitempty"`
	SeriesName        string         `json:"SeriesName,omitempty"`
	SeasonName        string         `json:"SeasonName,omitempty"`
	IndexNumber       *int           `json:"IndexNumber,omitempty"`
	ParentIndexNumber *int           `json:"ParentIndexNumber,omitempty"`
	Overview          string         `json:"Overview,omitempty"`
	ProductionYear    int            `json:"ProductionYear,omitempty"`
	RunTimeTicks      int64          `json:"RunTimeTicks,omitempty"`
	Genres            []string       `json:"Genres,omitempty"`
	Tags              []string       `json:"Tags"`
	Studios           []NameIDPair   `json:"Studios"`
	LockedFields      []string       `json:"LockedFields,omitempty"`
	LockData          bool           `json:"LockData,omitempty"`
	DateCreated       *time.Time     `json:"DateCreated,omitempty"`
	DateLastRefreshed *time.Time     `json:"DateLastRefreshed,omitempty"`
	UserData          *UserItemData  `json:"UserData,omitempty"`
	MediaSources      []MediaSource  `json:"MediaSources,omitempty"`
	ImageTags         map[string]any `json:"ImageTags,omitempty"`
}

// RunTime returns the item's duration.
func (i Item) RunTime() time.Duration {
	return time.Duration(i.RunTimeTicks) * 100
}

// DisplayName renders episodes as "Series - Name" and everything else by name.
func (i Item) DisplayName() string {
	name := strings.TrimSpace(i.Name)
	if i.SeriesName != "" && i.Type == "Episode" {
		return i.SeriesName + " - " + name
	}
	return name
}

// Played reports whether the current user finished the item.
func (i Item) Played() bool {
	return i.UserData != nil && i.UserData.Played
}

// UserItemData is the per-user playback state of an item.
type UserItemData struct {
	Played                bool       `json:"Played"`
	PlayCount             int        `json:"PlayCount,omitempty"`
	IsFavorite            bool       `json:"IsFavorite,omitempty"`
	PlaybackPositionTicks int64      `json:"PlaybackPositionTicks,omitempty"`
	PlayedPercentage      float64    `json:"PlayedPercentage,omitempty"`
	LastPlayedDate        *time.Time `json:"LastPlayedDate,omitempty"`
}

// NameIDPair is how the server references studios, genres and people.
type NameIDPair struct {
	Name string `json:"Name"`
	ID   string `json:"Id,omitempty"`
}

// ItemsResult wraps paged item listings.
type ItemsResult struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// QueryFilters mirrors /Items/Filters.
type QueryFilters struct {
	Genres          []string `json:"Genres"`
	Tags            []string `json:"Tags"`
	OfficialRatings []string `json:"OfficialRatings"`
	Years           []int    `json:"Years"`
}

// DeviceInfo describes a device that signed in to the server.
type DeviceInfo struct {
	ID               string     `json:"Id"`
	Name             string     `json:"Name"`
	AppName          string     `json:"AppName"`
	AppVersion       string     `json:"AppVersion"`
	LastUserName     string     `json:"LastUserName"`
	LastUserID       string     `json:"LastUserId"`
	DateLastActivity *time.Time `json:"DateLastActivity,omitempty"`
}

// DevicesResult mirrors /Devices.
type DevicesResult struct {
	Items            []DeviceInfo `json:"Items"`
	TotalRecordCount int          `json:"TotalRecordCount"`
}

// Task states reported by the server.
const (
	TaskIdle       = "Idle"
	TaskRunning    = "Running"
	TaskCancelling = "Cancelling"
)

// TaskInfo describes a scheduled task.
type TaskInfo struct {
	ID                        string      `json:"Id"`
	Name                      string      `json:"Name"`
	Key                       string      `json:"Key"`
	Category                  string      `json:"Category"`
	Description               string      `json:"Description"`
	State                     string      `json:"State"`
	IsHidden                  bool        `json:"IsHidden"`
	CurrentProgressPercentage *float64    `json:"CurrentProgressPercentage,omitempty"`
	LastExecutionResult       *TaskResult `json:"LastExecutionResult,omitempty"`
}

// Running reports whether the task is executing.
func (t TaskInfo) Running() bool { return t.State == TaskRunning }

// TaskResult is the outcome of the last run of a task.
type TaskResult struct {
	StartTimeUtc time.Time `json:"StartTimeUtc"`
	EndTimeUtc   time.Time `json:"EndTimeUtc"`
	Status       string    `json:"Status"`
	ErrorMessage string    `json:"ErrorMessage,omitempty"`
}

// SessionInfo describes an active client session.
type SessionInfo struct {
	ID                 string     `json:"Id"`
	UserID             string     `json:"UserId"`
	UserName           string     `json:"UserName"`
	Client             string     `json:"Client"`
	DeviceName         string     `json:"DeviceName"`
	DeviceID           string     `json:"DeviceId"`
	ApplicationVersion string     `json:"ApplicationVersion"`
	RemoteEndPoint     string     `json:"RemoteEndPoint"`
	LastActivityDate   time.Time  `json:"LastActivityDate"`
	NowPlayingItem     *Item      `json:"NowPlayingItem,omitempty"`
	PlayState          *PlayState `json:"PlayState,omitempty"`
}

// PlayState is the transport state of a session.
type PlayState struct {
	PositionTicks int64  `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	IsMuted       bool   `json:"IsMuted"`
	PlayMethod    string `json:"PlayMethod,omitempty"`
}

// MediaSource is one playable rendition of an item.
type MediaSource struct {
	ID                   string `json:"Id"`
	Name                 string `json:"Name,omitempty"`
	Path                 string `json:"Path,omitempty"`
	Container            string `json:"Container,omitempty"`
	Size                 int64  `json:"Size,omitempty"`
	Bitrate              int64  `json:"Bitrate,omitempty"`
	RunTimeTicks         int64  `json:"RunTimeTicks,omitempty"`
	SupportsDirectPlay   bool   `json:"SupportsDirectPlay"`
	SupportsDirectStream bool   `json:"SupportsDirectStream"`
	SupportsTranscoding  bool   `json:"SupportsTranscoding"`
}

// PlaybackInfo mirrors the /Items/{id}/PlaybackInfo response.
type PlaybackInfo struct {
	MediaSources  []MediaSource `json:"MediaSources"`
	PlaySessionID string        `json:"PlaySessionId"`
	ErrorCode     string        `json:"ErrorCode,omitempty"`
}

// Metadata and image refresh modes accepted by /Items/{id}/Refresh.
const (
	RefreshNone       = "None"
	RefreshValidation = "ValidationOnly"
	RefreshDefault    = "Default"
	RefreshFull       = "FullRefresh"
)

// RefreshOptions configures a metadata refresh.
type RefreshOptions struct {
	MetadataRefreshMode string
	ImageRefreshMode    string
	ReplaceAllMetadata  bool
	ReplaceAllImages    bool
}
