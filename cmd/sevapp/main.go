package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbabadag/sevapp/internal/app"
	"github.com/sbabadag/sevapp/internal/cache"
	"github.com/sbabadag/sevapp/internal/credential"
	"github.com/sbabadag/sevapp/internal/model"
	"github.com/sbabadag/sevapp/internal/notify"
	"github.com/sbabadag/sevapp/internal/supabase"
)

const usage = `sevapp - SevApp notification center

Usage:
  sevapp [flags]            run the notification center
  sevapp [flags] logout     revoke and forget the stored session
  sevapp [flags] send       insert a notification (admin/testing)
  sevapp [flags] delete     remove a notification (admin/testing)

Flags:
  -config PATH              config file (default ~/.config/sevapp/config.yaml)
`

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	// Seed a config file on first run so the user has something to edit.
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		if err := model.SaveConfig(*configPath, cfg); err != nil {
			log.Printf("writing default config: %v", err)
		}
	}
	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		log.Fatalf("missing backend settings: set supabase.url and supabase.anon_key in %s", *configPath)
	}

	client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)

	command := "run"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "run":
		runCenter(cfg, client)
	case "logout":
		runLogout(client)
	case "send":
		runSend(client, flag.Args()[1:])
	case "delete":
		runDelete(client, flag.Args()[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// runCenter wires the store and starts the terminal UI.
func runCenter(cfg *model.AppConfig, client *supabase.Client) {
	opts := []notify.Option{
		notify.WithDispatcher(notify.NewDesktopDispatcher(cfg.Notifications.Sound)),
		notify.WithPollInterval(cfg.PollInterval()),
		notify.WithListLimit(cfg.Notifications.ListLimit),
	}

	c, err := cache.NewSQLiteCache(cache.DefaultCachePath())
	if err != nil {
		// The cache is best-effort; run without it.
		log.Printf("notification cache unavailable: %v", err)
	} else {
		defer c.Close()
		opts = append(opts, notify.WithCache(c))
	}

	store := notify.NewStore(client, opts...)
	defer store.Close()

	program := tea.NewProgram(app.New(client, store), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("running UI: %v", err)
	}
}

// runLogout revokes the stored session server-side when possible and
// forgets the local credential and cache either way.
func runLogout(client *supabase.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := credential.Get(credential.RefreshTokenKey)
	if err == nil && token != "" {
		if session, err := client.RefreshSession(ctx, token); err == nil {
			if err := client.SignOut(ctx); err != nil {
				log.Printf("revoking session: %v", err)
			}
			if c, err := cache.NewSQLiteCache(cache.DefaultCachePath()); err == nil {
				if err := c.Clear(ctx, session.UserID); err != nil {
					log.Printf("clearing cache: %v", err)
				}
				c.Close()
			}
		}
	}

	if err := credential.Delete(credential.RefreshTokenKey); err != nil {
		log.Printf("forgetting stored session: %v", err)
	}
	fmt.Println("Signed out.")
}

// runSend inserts a notification row through the backend, exercising
// the whole pipeline end to end: the realtime channel should deliver
// it to any running client within a moment.
func runSend(client *supabase.Client, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	userID := fs.String("user", "", "target user id (defaults to the signed-in user)")
	title := fs.String("title", "Test notification", "notification title")
	message := fs.String("message", "This is a test notification from sevapp.", "notification body")
	typ := fs.String("type", "general", "notification type (order, promotion, general, system)")
	fs.Parse(args)

	if !model.NotificationType(*typ).Valid() {
		log.Fatalf("unknown notification type %q", *typ)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := credential.Get(credential.RefreshTokenKey)
	if err != nil || token == "" {
		log.Fatalf("no stored session; run `sevapp` and sign in first")
	}
	session, err := client.RefreshSession(ctx, token)
	if err != nil {
		log.Fatalf("restoring session: %v", err)
	}
	if err := credential.Set(credential.RefreshTokenKey, session.RefreshToken); err != nil {
		log.Printf("persisting refresh token: %v", err)
	}

	target := *userID
	if target == "" {
		target = session.UserID
	}

	created, err := client.CreateNotification(ctx, model.Notification{
		UserID:  target,
		Title:   *title,
		Message: *message,
		Type:    model.NotificationType(*typ),
		Data:    map[string]any{"test": true},
	})
	if err != nil {
		log.Fatalf("sending notification: %v", err)
	}

	fmt.Printf("Sent notification %d to user %s\n", created.ID, target)
}

// runDelete removes a notification row through the backend.
func runDelete(client *supabase.Client, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "notification id to delete")
	fs.Parse(args)

	if *id <= 0 {
		log.Fatalf("missing or invalid -id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := credential.Get(credential.RefreshTokenKey)
	if err != nil || token == "" {
		log.Fatalf("no stored session; run `sevapp` and sign in first")
	}
	session, err := client.RefreshSession(ctx, token)
	if err != nil {
		log.Fatalf("restoring session: %v", err)
	}
	if err := credential.Set(credential.RefreshTokenKey, session.RefreshToken); err != nil {
		log.Printf("persisting refresh token: %v", err)
	}

	if err := client.DeleteNotification(ctx, *id); err != nil {
		log.Fatalf("deleting notification: %v", err)
	}
	fmt.Printf("Deleted notification %d\n", *id)
}
