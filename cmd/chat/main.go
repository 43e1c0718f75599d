package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Rrens/kiwi-chat/internal/chat"
	"github.com/Rrens/kiwi-chat/internal/config"
	"github.com/Rrens/kiwi-chat/internal/lead"
	"github.com/Rrens/kiwi-chat/internal/logger"
	"github.com/Rrens/kiwi-chat/internal/session"
	"github.com/Rrens/kiwi-chat/internal/webhook"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const help = "Commands: /lead to leave your contact, /close to end the conversation, /quit to exit"

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	events := webhook.NewEventLogger(cfg.Chat.LogWebhookURL, cfg.Chat.EventQueueSize, nil)
	events.Start()
	defer events.Close()

	client := chat.NewClient(
		chat.OptionsFromConfig(cfg.Chat),
		webhook.NewChatClient(cfg.Chat.ChatWebhookURL, nil),
		events,
		session.NewManager(session.NewMemoryStorage(0), cfg.Chat.StorageKey),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client, bufio.NewScanner(os.Stdin)); err != nil {
		log.Error().Err(err).Msg("Chat ended with error")
	}
	client.Close(context.Background())
}

func run(ctx context.Context, client *chat.Client, in *bufio.Scanner) error {
	snap := client.Open(ctx)
	for _, m := range snap.Messages {
		fmt.Printf("%s: %s\n", m.Role.Label(), m.Text)
	}
	fmt.Println(help)

	for {
		if client.LeadPromptAvailable() {
			fmt.Println("(Type /lead to schedule a meeting with our team)")
		}
		fmt.Print("> ")
		if !in.Scan() {
			return in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/close":
			client.Close(ctx)
			fmt.Println("Conversation closed.")
			for _, m := range client.Open(ctx).Messages {
				fmt.Printf("%s: %s\n", m.Role.Label(), m.Text)
			}
			continue
		case "/lead":
			if err := captureLead(ctx, client, in); err != nil {
				fmt.Println(err)
			}
			continue
		}

		fmt.Print("Bot: ")
		streamed := false
		msg, err := client.Send(ctx, line, func(delta string) {
			streamed = true
			fmt.Print(delta)
		})
		if err != nil {
			fmt.Println(err)
			continue
		}
		if !streamed {
			fmt.Print(msg.Text)
		}
		fmt.Println()
	}
}

func captureLead(ctx context.Context, client *chat.Client, in *bufio.Scanner) error {
	if err := client.PromptLead(); err != nil {
		return err
	}

	for {
		var form lead.Form
		for _, field := range []struct {
			label string
			dest  *string
		}{
			{"Name", &form.Name},
			{"Company (optional)", &form.Company},
			{"Email", &form.Email},
		} {
			fmt.Printf("%s: ", field.label)
			if !in.Scan() {
				return in.Err()
			}
			if strings.TrimSpace(in.Text()) == "/close" {
				client.Close(ctx)
				fmt.Println("Conversation closed.")
				return nil
			}
			*field.dest = in.Text()
		}

		msg, err := client.SubmitLead(ctx, form)
		var validationErr *lead.ValidationError
		if errors.As(err, &validationErr) {
			for name, problem := range validationErr.Fields {
				fmt.Printf("  %s: %s\n", name, problem)
			}
			continue
		}
		if err != nil {
			return err
		}

		fmt.Printf("Bot: %s\n", msg.Text)
		return nil
	}
}
