package profileimage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/notify"
)

const PhaseUploading controller.Phase = "uploading"

// MaxSize caps uploads; the server rejects larger request bodies anyway.
const MaxSize = 10 << 20

// API uploads the signed-in user's primary image.
type API interface {
	UploadProfileImage(ctx context.Context, data []byte, contentType string) error
	UserID() string
}

// Action is a profile image action.
type Action interface{ isAction() }

// Upload replaces the profile image. An empty ContentType is sniffed from
// the data.
type Upload struct {
	Data        []byte
	ContentType string
}

// Cancel abandons an in-flight upload.
type Cancel struct{}

func (Upload) isAction() {}
func (Cancel) isAction() {}

func (Upload) String() string { return "upload" }
func (Cancel) String() string { return "cancel" }

// Event is a one-shot upload event.
type Event interface{ isEvent() }

type (
	// Uploaded follows a successful upload.
	Uploaded struct{}
	// Failed reports a rejected or failed upload.
	Failed struct{ Err *controller.Error }
)

func (Uploaded) isEvent() {}
func (Failed) isEvent()   {}

// Uploader uploads profile images.
type Uploader struct {
	*controller.Controller[Action, Event]

	api API
	bus notify.Publisher
}

// New builds an uploader. bus may be nil.
func New(api API, bus notify.Publisher) *Uploader {
	u := &Uploader{api: api, bus: bus}
	u.Controller = controller.New[Action, Event](u.handle, controller.Options[Event]{
		Name:    "profileimage",
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return u
}

func (u *Uploader) handle(_ controller.State, action Action) controller.Step[Event] {
	switch a := action.(type) {
	case Cancel:
		return controller.Step[Event]{Cancel: true, State: controller.Initial()}
	case Upload:
		data := a.Data
		contentType := strings.TrimSpace(a.ContentType)
		return controller.Step[Event]{
			State: controller.Busy(PhaseUploading),
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				if err := validate(data); err != nil {
					return controller.Result[Event]{}, err
				}
				if contentType == "" {
					contentType = http.DetectContentType(data)
				}
				if err := u.api.UploadProfileImage(ctx, data, contentType); err != nil {
					return controller.Result[Event]{}, fmt.Errorf("upload profile image: %w", err)
				}
				if u.bus != nil {
					u.bus.Publish(notify.TopicUserProfileImageDidChange, u.api.UserID())
				}
				return controller.Result[Event]{
					State:  controller.Content(),
					Events: []Event{Uploaded{}},
				}, nil
			},
		}
	}
	return controller.Keep[Event]()
}

func validate(data []byte) error {
	switch {
	case len(data) == 0:
		return controller.Errorf("image is empty")
	case len(data) > MaxSize:
		return controller.Errorf("image is %s, limit is %s",
			humanize.IBytes(uint64(len(data))), humanize.IBytes(MaxSize))
	}
	return nil
}
