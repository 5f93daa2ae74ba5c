// Command eventwatch mirrors the server's event list in the terminal.
// It loads the list over REST, then applies pushed notifications to a local view.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventplanner/config"
	"eventplanner/internal/adapters/eventapi"
	"eventplanner/internal/delivery/ws"
	"eventplanner/internal/domain"
	"eventplanner/internal/reconciler"
)

var (
	serverURL      string
	token          string
	focusID        string
	topics         string
	refetchOnLeave bool
	hidePast       bool
)

var rootCmd = &cobra.Command{
	Use:          "eventwatch",
	Short:        "Watch events and attendance change live",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watch(ctx, cmd.OutOrStdout(), config.NewLogger())
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	rootCmd.Flags().StringVar(&token, "token", os.Getenv("EVENTPLANNER_TOKEN"), "bearer token")
	rootCmd.Flags().StringVar(&focusID, "event", "", "focus one event, as the detail screen does")
	rootCmd.Flags().StringVar(&topics, "topics", "", "comma separated topics to subscribe to (default: all)")
	rootCmd.Flags().BoolVar(&refetchOnLeave, "refetch-on-leave", false, "refetch an event when a user leaves it")
	rootCmd.Flags().BoolVar(&hidePast, "hide-past", true, "hide events that started before yesterday")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func watch(ctx context.Context, out io.Writer, logger *slog.Logger) error {
	subscribed, err := ws.ParseTopics(topics)
	if err != nil {
		return err
	}

	client := eventapi.NewClient(serverURL, token, nil)
	var opts []reconciler.Option
	if refetchOnLeave {
		opts = append(opts, reconciler.WithRefetchOnLeave())
	}
	if hidePast {
		opts = append(opts, reconciler.WithHidePast(time.Now))
	}
	view := reconciler.NewView(client, opts...)

	if err := view.Refresh(ctx); err != nil {
		return err
	}
	if focusID != "" {
		if _, err := view.Focus(ctx, focusID); err != nil {
			return err
		}
	}
	render(out, view)

	return client.Listen(ctx, subscribed, func(n domain.Notification) {
		action, err := view.Apply(ctx, n)
		if err != nil {
			logger.Warn("apply notification", "topic", n.Topic(), "event_id", n.EventID(), "err", err)
			return
		}
		logger.Debug("notification applied", "topic", n.Topic(), "event_id", n.EventID(), "action", action)
		switch action {
		case reconciler.ActionNone:
			return
		case reconciler.ActionNavigateAway:
			fmt.Fprintf(out, "event %s was cancelled\n", n.EventID())
		}
		render(out, view)
	})
}

func render(out io.Writer, view *reconciler.View) {
	if id := view.Focused(); id != "" {
		if ev, ok := view.Event(id); ok {
			fmt.Fprintf(out, "== %s (%s)\n%s\n", ev.Title, ev.StartTime.Local().Format(time.RFC1123), ev.Description)
			fmt.Fprintf(out, "attendees: %s\n", names(ev.Attendees))
			return
		}
	}
	events := view.Events()
	fmt.Fprintf(out, "== %d event(s)\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(out, "%s  %-30s %d attending\n", ev.StartTime.Local().Format("Mon Jan 2 15:04"), ev.Title, len(ev.Attendees))
	}
}

func names(attendees []domain.Attendee) string {
	out := make([]string, len(attendees))
	for i, a := range attendees {
		out[i] = a.Name
	}
	return strings.Join(out, ", ")
}
