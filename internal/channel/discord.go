// Package channel implements the chat platform gateway.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"scribe/internal/domain"
)

// historyPageSize is Discord's maximum page size for channel history.
const historyPageSize = 100

// Discord implements domain.Gateway over the Discord gateway and REST APIs.
type Discord struct {
	token   string
	session *discordgo.Session
	logger  *slog.Logger

	nameMu sync.Mutex
	names  map[string]string // channel id -> resolved name
}

// DiscordConfig configures the Discord gateway.
type DiscordConfig struct {
	Token  string
	Logger *slog.Logger
}

// NewDiscord creates a new Discord gateway.
func NewDiscord(cfg DiscordConfig) *Discord {
	return &Discord{
		token:  cfg.Token,
		logger: cfg.Logger,
		names:  make(map[string]string),
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord, publishes every MESSAGE_CREATE onto the bus,
// and blocks until ctx is cancelled. discordgo handles reconnects itself.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	d.session = session

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("logged in", "user", r.User.Username, "id", r.User.ID)
	})

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		bus.Publish(d.convert(m.Message))
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	<-ctx.Done()
	d.logger.Info("discord gateway disconnecting")
	return session.Close()
}

// Stop disconnects the session if one is open.
func (d *Discord) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// Send posts a new message and returns its id.
func (d *Discord) Send(ctx context.Context, channelID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord send: %w", err)
	}
	return msg.ID, nil
}

// Edit replaces the content of a previously sent message.
func (d *Discord) Edit(ctx context.Context, channelID, messageID, content string) error {
	if _, err := d.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord edit: %w", err)
	}
	return nil
}

// History pages through the channel's full history, newest first, streaming
// each message through fn. Pagination is cursor-based on the oldest message
// of the previous page.
func (d *Discord) History(ctx context.Context, channelID string, fn domain.HistoryFunc) error {
	beforeID := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := d.session.ChannelMessages(channelID, historyPageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("fetch history page: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		for _, m := range page {
			if err := fn(d.convert(m)); err != nil {
				return err
			}
		}
		beforeID = page[len(page)-1].ID
	}
}

func (d *Discord) convert(m *discordgo.Message) domain.Message {
	attachments := make([]domain.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, domain.Attachment{
			ContentType: a.ContentType,
			URL:         a.URL,
		})
	}

	msg := domain.Message{
		ID:          m.ID,
		Channel:     domain.ChannelRef{ID: m.ChannelID, Name: d.channelName(m.ChannelID)},
		Body:        m.Content,
		Timestamp:   m.Timestamp,
		Attachments: attachments,
	}
	if m.Author != nil {
		msg.Author = domain.Author{
			ID:   m.Author.ID,
			Name: m.Author.Username,
			Tag:  m.Author.Discriminator,
		}
		if d.session.State != nil && d.session.State.User != nil {
			msg.FromSelf = m.Author.ID == d.session.State.User.ID
		}
	}
	return msg
}

// channelName resolves and caches a channel's name. DMs have no name and
// fall back to the channel id.
func (d *Discord) channelName(channelID string) string {
	d.nameMu.Lock()
	if name, ok := d.names[channelID]; ok {
		d.nameMu.Unlock()
		return name
	}
	d.nameMu.Unlock()

	name := channelID
	if ch, err := d.session.State.Channel(channelID); err == nil && ch.Name != "" {
		name = ch.Name
	} else if ch, err := d.session.Channel(channelID); err == nil && ch.Name != "" {
		name = ch.Name
	}

	d.nameMu.Lock()
	d.names[channelID] = name
	d.nameMu.Unlock()
	return name
}
