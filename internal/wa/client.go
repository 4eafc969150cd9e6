package wa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ai-bot/internal/metrics"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

// Config holds configuration to initialise the WhatsApp client.
type Config struct {
	StorePath string
	LogLevel  string
	Metrics   *metrics.Metrics
}

// Client wraps the WhatsMeow client and associated dependencies.
type Client struct {
	client    *whatsmeow.Client
	logger    *slog.Logger
	metrics   *metrics.Metrics
	processor MessageProcessor
}

// MessageProcessor handles inbound WhatsApp messages.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, evt *events.Message)
}

type replyContextKey struct{}

// ReplyMetadata carries information for quoting a previous message.
type ReplyMetadata struct {
	Message *waProto.Message
	Info    types.MessageInfo
}

// WithReply attaches reply metadata to the context so outgoing messages quote the given event.
func WithReply(ctx context.Context, evt *events.Message) context.Context {
	if evt == nil || evt.Message == nil {
		return ctx
	}
	cloned, ok := proto.Clone(evt.Message).(*waProto.Message)
	if !ok {
		cloned = evt.Message
	}
	meta := &ReplyMetadata{
		Message: cloned,
		Info:    evt.Info,
	}
	return context.WithValue(ctx, replyContextKey{}, meta)
}

func replyFromContext(ctx context.Context) *ReplyMetadata {
	if ctx == nil {
		return nil
	}
	meta, _ := ctx.Value(replyContextKey{}).(*ReplyMetadata)
	return meta
}

// WithoutReply drops quoting so messages to third parties do not quote the
// triggering message.
func WithoutReply(ctx context.Context) context.Context {
	return context.WithValue(ctx, replyContextKey{}, (*ReplyMetadata)(nil))
}

// New creates a new WhatsApp client instance backed by an SQLite store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.StorePath == "" {
		return nil, errors.New("store path is required")
	}

	if err := ensureDir(filepath.Dir(cfg.StorePath)); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	storeLogger := waLog.Stdout("whatsmeow/sqlstore", cfg.LogLevel, true)
	container, err := sqlstore.New(ctx, "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout=10000&_pragma=foreign_keys(ON)", cfg.StorePath), storeLogger)
	if err != nil {
		return nil, fmt.Errorf("create sqlstore: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	waLogger := waLog.Stdout("whatsmeow/client", cfg.LogLevel, true)
	client := whatsmeow.NewClient(deviceStore, waLogger)

	wc := &Client{
		client:  client,
		logger:  logger.With("component", "wa"),
		metrics: cfg.Metrics,
	}
	client.AddEventHandler(wc.handleEvent)

	return wc, nil
}

// Start connects the client and handles login/QR pairing flow.
func (c *Client) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		c.logger.Info("pairing required, waiting for QR scan")
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					c.logger.Info("scan the QR code with WhatsApp", "qr", evt.Code)
				} else {
					c.logger.Info("pairing event received", "event", evt.Event)
				}
			}
		}()
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect wa client: %w", err)
	}

	c.logger.Info("whatsapp client connected")
	return nil
}

// Close disconnects the WhatsApp client.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect()
	}
}

// Connected reports whether the websocket is up.
func (c *Client) Connected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	case *events.Connected:
		c.logger.Info("device connected")
	case *events.Disconnected:
		c.logger.Warn("device disconnected")
	case *events.LoggedOut:
		c.logger.Error("device logged out, pairing required on next start", "reason", v.Reason)
	}
}

func (c *Client) handleMessage(evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe {
		return
	}
	if evt.Info.IsGroup || evt.Info.Chat.Server == types.BroadcastServer {
		return
	}

	kind := MessageKind(evt.Message)
	if c.metrics != nil {
		c.metrics.WAIncomingMessages.WithLabelValues(kind).Inc()
	}
	c.logger.Debug("received message", "from", evt.Info.Sender.String(), "type", kind)

	if c.processor != nil {
		go c.processor.ProcessMessage(context.Background(), evt)
	}
}

// MessageKind classifies a message for metrics and logs.
func MessageKind(msg *waProto.Message) string {
	switch {
	case msg.GetConversation() != "":
		return "text"
	case msg.ExtendedTextMessage != nil:
		return "extended_text"
	case msg.ImageMessage != nil:
		return "image"
	case msg.VideoMessage != nil:
		return "video"
	case msg.AudioMessage != nil:
		return "audio"
	default:
		return "unsupported"
	}
}

// MessageText returns the user-visible text of a message, including media
// captions.
func MessageText(msg *waProto.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.ExtendedTextMessage != nil:
		return msg.GetExtendedTextMessage().GetText()
	case msg.ImageMessage != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.VideoMessage != nil:
		return msg.GetVideoMessage().GetCaption()
	}
	return ""
}

// UserID turns a WhatsApp JID into the numeric user id used by the bot.
func UserID(jid types.JID) (int64, error) {
	user := strings.TrimPrefix(jid.ToNonAD().User, "+")
	id, err := strconv.ParseInt(user, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("jid %s has no numeric user", jid.String())
	}
	return id, nil
}

// UserJID returns the chat address for a numeric user id.
func UserJID(userID int64) types.JID {
	return types.NewJID(strconv.FormatInt(userID, 10), types.DefaultUserServer)
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// SetMessageProcessor registers message processor callback.
func (c *Client) SetMessageProcessor(processor MessageProcessor) {
	c.processor = processor
}

// SendText sends a text message to the specified JID.
func (c *Client) SendText(ctx context.Context, to types.JID, text string) error {
	reply := replyFromContext(ctx)
	var message *waProto.Message
	if reply != nil && reply.Message != nil && reply.Info.Chat == to {
		contextInfo := &waProto.ContextInfo{
			StanzaID:      proto.String(string(reply.Info.ID)),
			Participant:   proto.String(reply.Info.Sender.ToNonAD().String()),
			RemoteJID:     proto.String(reply.Info.Chat.String()),
			QuotedMessage: reply.Message,
			QuotedType:    waProto.ContextInfo_EXPLICIT.Enum(),
		}
		message = &waProto.Message{
			ExtendedTextMessage: &waProto.ExtendedTextMessage{
				Text:        proto.String(text),
				ContextInfo: contextInfo,
			},
		}
	} else {
		message = &waProto.Message{
			Conversation: proto.String(text),
		}
	}
	_, err := c.client.SendMessage(ctx, to, message)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Errors.WithLabelValues("wa_send").Inc()
		}
		return fmt.Errorf("send text: %w", err)
	}
	if c.metrics != nil {
		c.metrics.WAOutgoingMessages.WithLabelValues("text").Inc()
	}
	return nil
}
