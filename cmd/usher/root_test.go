package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/notify"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"devices", "items", "random", "watched", "tags", "studios", "refresh", "tasks", "avatar", "play"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
	if cmd, _, err := root.Find([]string{"tasks", "restart-server"}); err != nil || cmd.Name() != "restart-server" {
		t.Fatalf("tasks restart-server not registered")
	}
}

func TestRootFlagsBuildOptions(t *testing.T) {
	root := newRootCmd()
	if err := root.ParseFlags([]string{"--server", "http://jf:8096", "--poll", "3s", "-v"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	server, _ := root.PersistentFlags().GetString("server")
	poll, _ := root.PersistentFlags().GetDuration("poll")
	verbose, _ := root.PersistentFlags().GetBool("verbose")
	if server != "http://jf:8096" || poll != 3*time.Second || !verbose {
		t.Fatalf("flags = %q %v %v", server, poll, verbose)
	}

	opts := (&rootFlags{server: server, poll: poll, verbose: verbose}).options()
	if opts.ServerURL != server || opts.PollEvery != poll || opts.LogLevel != "debug" {
		t.Fatalf("options = %+v", opts)
	}
	if opts.Version != Version {
		t.Fatalf("Version = %q, want %q", opts.Version, Version)
	}
}

func TestResolveStudiosReusesKnownIDs(t *testing.T) {
	known := []jellyfin.NameIDPair{{Name: "A24", ID: "s1"}, {Name: "Ghibli", ID: "s2"}}
	got := resolveStudios([]string{"ghibli", "Neon"}, known)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != (jellyfin.NameIDPair{Name: "Ghibli", ID: "s2"}) {
		t.Fatalf("known studio = %+v", got[0])
	}
	if got[1] != (jellyfin.NameIDPair{Name: "Neon"}) {
		t.Fatalf("new studio = %+v", got[1])
	}
}

type fakeAvatarAPI struct {
	contentType string
	err         error
}

func (f *fakeAvatarAPI) UploadProfileImage(_ context.Context, _ []byte, contentType string) error {
	f.contentType = contentType
	return f.err
}

func (f *fakeAvatarAPI) UserID() string { return "u1" }

func TestUploadAvatarReportsProfileImageChange(t *testing.T) {
	bus := notify.NewBus(0)
	defer bus.Close()
	api := &fakeAvatarAPI{}

	png := []byte("\x89PNG\r\n\x1a\n0000")
	userID, err := uploadAvatar(context.Background(), api, bus, png, "")
	if err != nil {
		t.Fatalf("uploadAvatar: %v", err)
	}
	if userID != "u1" || api.contentType != "image/png" {
		t.Fatalf("user = %q, content type = %q", userID, api.contentType)
	}
}

func TestUploadAvatarFailure(t *testing.T) {
	bus := notify.NewBus(0)
	defer bus.Close()
	api := &fakeAvatarAPI{err: errors.New("413 too large")}

	if _, err := uploadAvatar(context.Background(), api, bus, []byte("data"), "image/jpeg"); err == nil {
		t.Fatal("expected an error")
	}
}
