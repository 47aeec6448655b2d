package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/usher/internal/devices"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/notify"
	"github.com/five82/usher/internal/profileimage"
	"github.com/five82/usher/internal/tasks"
)

func newDevicesCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices signed in to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevices(cmd, flags, devices.GetDevices{})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete DEVICE_ID...",
		Short: "Delete devices; the device usher runs as is skipped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(cmd, flags, devices.DeleteDevices{IDs: args})
		},
	})
	return cmd
}

func runDevices(cmd *cobra.Command, flags *rootFlags, action devices.Action) error {
	s, err := newSession(flags)
	if err != nil {
		return err
	}
	defer s.Close()

	mgr := devices.New(s.client, s.client.DeviceID())
	defer mgr.Close()

	mgr.Respond(action)
	if err := settle(cmd.Context(), mgr); err != nil {
		return err
	}
	printDevices(cmd.OutOrStdout(), mgr.Devices(), mgr.SelfID())
	return nil
}

func printDevices(w io.Writer, list []jellyfin.DeviceInfo, self string) {
	fmt.Fprintf(w, "%-1s %-36s %-24s %-24s %-14s %s\n", "", "ID", "NAME", "APP", "USER", "LAST SEEN")
	for _, d := range list {
		mark := ""
		if d.ID == self {
			mark = "*"
		}
		seen := "never"
		if d.DateLastActivity != nil {
			seen = humanize.Time(*d.DateLastActivity)
		}
		fmt.Fprintf(w, "%-1s %-36s %-24s %-24s %-14s %s\n", mark, d.ID, d.Name, d.AppName+" "+d.AppVersion, d.LastUserName, seen)
	}
}

func newTasksCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTasks(cmd, flags, tasks.Refresh{}, true)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "start TASK_ID",
			Short: "Run a scheduled task now",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTasks(cmd, flags, tasks.Start{ID: args[0]}, true)
			},
		},
		&cobra.Command{
			Use:   "stop TASK_ID",
			Short: "Cancel a running task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTasks(cmd, flags, tasks.Stop{ID: args[0]}, true)
			},
		},
		&cobra.Command{
			Use:   "restart-server",
			Short: "Restart the media server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runTasks(cmd, flags, tasks.RestartServer{}, false)
			},
		},
		&cobra.Command{
			Use:   "shutdown-server",
			Short: "Shut down the media server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runTasks(cmd, flags, tasks.ShutdownServer{}, false)
			},
		},
	)
	return cmd
}

func runTasks(cmd *cobra.Command, flags *rootFlags, action tasks.Action, list bool) error {
	s, err := newSession(flags)
	if err != nil {
		return err
	}
	defer s.Close()

	mgr := tasks.New(s.client)
	defer mgr.Close()

	mgr.Respond(action)
	if err := settle(cmd.Context(), mgr); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, ev := range drain(mgr.Events()) {
		switch ev := ev.(type) {
		case tasks.Started:
			fmt.Fprintf(out, "started %s\n", ev.ID)
		case tasks.Stopped:
			fmt.Fprintf(out, "stopped %s\n", ev.ID)
		case tasks.ServerRestarting:
			fmt.Fprintln(out, "server restarting")
		case tasks.ServerStopping:
			fmt.Fprintln(out, "server shutting down")
		}
	}
	if list {
		printTasks(out, mgr.Categories())
	}
	return nil
}

func printTasks(w io.Writer, categories []tasks.Category) {
	for _, c := range categories {
		fmt.Fprintf(w, "%s\n", c.Name)
		for _, t := range c.Tasks {
			detail := ""
			switch {
			case t.Running() && t.CurrentProgressPercentage != nil:
				detail = fmt.Sprintf("%.0f%%", *t.CurrentProgressPercentage)
			case t.LastExecutionResult != nil:
				detail = t.LastExecutionResult.Status
				if end := t.LastExecutionResult.EndTimeUtc; !end.IsZero() {
					detail += " " + humanize.Time(end)
				}
			}
			fmt.Fprintf(w, "  %-32s %-10s %-40s %s\n", t.ID, t.State, t.Name, detail)
		}
	}
}

func newAvatarCmd(flags *rootFlags) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "avatar IMAGE_FILE",
		Short: "Upload a profile image for the signed-in user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			s, err := newSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			userID, err := uploadAvatar(cmd.Context(), s.client, s.bus, data, contentType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%s) for user %s\n", args[0], humanize.Bytes(uint64(len(data))), userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "image content type (sniffed when empty)")
	return cmd
}

// uploadAvatar uploads data and returns the user id announced on the bus
// once the server accepted it.
func uploadAvatar(ctx context.Context, api profileimage.API, bus *notify.Bus, data []byte, contentType string) (string, error) {
	sub := bus.Subscribe(notify.TopicUserProfileImageDidChange)
	defer sub.Close()

	up := profileimage.New(api, bus)
	defer up.Close()

	up.Respond(profileimage.Upload{Data: data, ContentType: contentType})
	if err := settle(ctx, up); err != nil {
		return "", err
	}
	select {
	case msg := <-sub.C():
		userID, _ := msg.Payload.(string)
		return userID, nil
	default:
		return "", fmt.Errorf("upload finished without a profile image change")
	}
}
