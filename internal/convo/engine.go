// Package convo turns inbound WhatsApp messages into bot actions: commands,
// multi-step dialogs and gated AI calls.
package convo

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"ai-bot/internal/ai"
	"ai-bot/internal/catalog"
	"ai-bot/internal/entitlement"
	"ai-bot/internal/locale"
	"ai-bot/internal/metrics"
	"ai-bot/internal/payment"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"
	"ai-bot/internal/session"
	"ai-bot/internal/wa"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

const dateLayout = "2006-01-02"

// Sender delivers text messages.
type Sender interface {
	SendText(ctx context.Context, to types.JID, text string) error
}

// Dependencies wires the engine to the rest of the bot.
type Dependencies struct {
	Sender      Sender
	Repository  repo.Repository
	Catalog     *catalog.Registry
	Entitlement *entitlement.Service
	Payments    *payment.Workflow
	Promos      *promo.Engine
	Sessions    *session.Store
	AI          ai.Provider
	Translator  *locale.Translator
	Clock       entitlement.Clock
	Metrics     *metrics.Metrics
}

// Config holds engine options.
type Config struct {
	// AdminNotifyJID optionally receives payment reports in addition to
	// each admin's own chat.
	AdminNotifyJID string
}

// Engine routes messages. It implements wa.MessageProcessor and
// payment.Notifier.
type Engine struct {
	sender   Sender
	repo     repo.Repository
	catalog  *catalog.Registry
	ent      *entitlement.Service
	payments *payment.Workflow
	promos   *promo.Engine
	sessions *session.Store
	ai       ai.Provider
	tr       *locale.Translator
	clock    entitlement.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger

	adminChat *types.JID
}

var (
	_ wa.MessageProcessor = (*Engine)(nil)
	_ payment.Notifier    = (*Engine)(nil)
)

// Incoming is a normalised inbound text message.
type Incoming struct {
	UserID int64
	Chat   types.JID
	Name   string
	Text   string
}

// turn carries per-message state through the handlers.
type turn struct {
	in   Incoming
	user *repo.User
	lang string
}

// New builds an Engine.
func New(deps Dependencies, cfg Config, logger *slog.Logger) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = entitlement.SystemClock{}
	}
	e := &Engine{
		sender:   deps.Sender,
		repo:     deps.Repository,
		catalog:  deps.Catalog,
		ent:      deps.Entitlement,
		payments: deps.Payments,
		promos:   deps.Promos,
		sessions: deps.Sessions,
		ai:       deps.AI,
		tr:       deps.Translator,
		clock:    clock,
		metrics:  deps.Metrics,
		logger:   logger.With("component", "convo"),
	}
	if raw := strings.TrimSpace(cfg.AdminNotifyJID); raw != "" {
		jid, err := types.ParseJID(raw)
		if err != nil {
			e.logger.Warn("invalid admin notify jid ignored", "jid", raw, "error", err)
		} else {
			e.adminChat = &jid
		}
	}
	return e
}

// ProcessMessage handles a WhatsApp message event.
func (e *Engine) ProcessMessage(ctx context.Context, evt *events.Message) {
	text := strings.TrimSpace(wa.MessageText(evt.Message))
	if text == "" {
		return
	}
	userID, err := wa.UserID(evt.Info.Sender)
	if err != nil {
		e.logger.Debug("ignoring message from non-user sender", "sender", evt.Info.Sender.String(), "error", err)
		return
	}
	ctx = wa.WithReply(ctx, evt)
	e.Handle(ctx, Incoming{
		UserID: userID,
		Chat:   evt.Info.Chat,
		Name:   evt.Info.PushName,
		Text:   text,
	})
}

// Handle processes one message synchronously.
func (e *Engine) Handle(ctx context.Context, in Incoming) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return
	}

	profile := repo.UserProfile{ID: in.UserID, Language: e.tr.Fallback()}
	if name := strings.TrimSpace(in.Name); name != "" {
		profile.DisplayName = &name
	}
	u, err := e.repo.EnsureUser(ctx, profile, e.clock.Now())
	if err != nil {
		e.fail(ctx, &turn{in: in, lang: e.tr.Fallback()}, "ensure user", err)
		return
	}
	t := &turn{in: in, user: u, lang: u.Language}
	if _, ok := locale.Normalize(t.lang); !ok {
		t.lang = e.tr.Fallback()
	}

	if cmd, args, ok := splitCommand(in.Text); ok {
		e.handleCommand(ctx, t, cmd, args)
		return
	}
	e.handleText(ctx, t)
}

// splitCommand separates "/cmd rest" into its lowercase command and argument text.
func splitCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] == "/" {
		return "", "", false
	}
	cmd := strings.ToLower(fields[0])
	args := strings.TrimSpace(text[len(fields[0]):])
	return cmd, args, true
}

func (e *Engine) handleCommand(ctx context.Context, t *turn, cmd, args string) {
	switch cmd {
	case "/start":
		e.cmdStart(ctx, t)
	case "/help":
		e.cmdHelp(ctx, t)
	case "/lang", "/language":
		e.cmdLang(ctx, t, args)
	case "/stats":
		e.cmdStats(ctx, t)
	case "/premium":
		e.cmdPremium(ctx, t)
	case "/buy":
		e.cmdBuy(ctx, t, args)
	case "/promo":
		e.cmdPromo(ctx, t, args)
	case "/skip":
		e.cmdSkip(ctx, t)
	case "/paid":
		e.cmdPaid(ctx, t)
	case "/cancel":
		e.cmdCancel(ctx, t)
	case "/pending", "/confirm", "/reject", "/newpromo", "/promos", "/grant", "/revoke", "/adminstats":
		e.handleAdmin(ctx, t, cmd, args)
	default:
		if service, ok := serviceCommands[cmd]; ok {
			e.cmdService(ctx, t, service, cmd, args)
			return
		}
		e.reply(ctx, t, "unknown_command", nil)
	}
}

// handleText routes free text: an open checkout step first, then a pending
// wizard, then plain AI chat.
func (e *Engine) handleText(ctx context.Context, t *turn) {
	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}

	if co := st.Checkout; co != nil {
		switch co.Step {
		case payment.StepSelectingPackage:
			e.selectPackage(ctx, t, st, t.in.Text)
			return
		case payment.StepEnteringPromo:
			e.applyPromo(ctx, t, st, t.in.Text)
			return
		}
	}

	if w := st.Wizard; w != nil {
		st.Wizard = nil
		if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
			e.fail(ctx, t, "save session", err)
			return
		}
		e.runWizard(ctx, t, w.Service, t.in.Text)
		return
	}

	e.runService(ctx, t, catalog.ServiceChat, t.in.Text, "")
}

func (e *Engine) cmdStart(ctx context.Context, t *turn) {
	name := strings.TrimSpace(t.in.Name)
	if name == "" && t.user.DisplayName != nil {
		name = *t.user.DisplayName
	}
	if name == "" {
		name = strconv.FormatInt(t.in.UserID, 10)
	}
	e.send(ctx, t, e.text(t, "welcome", locale.Args{"name": name})+"\n\n"+e.text(t, "help", nil))
}

func (e *Engine) cmdHelp(ctx context.Context, t *turn) {
	msg := e.text(t, "help", nil)
	if e.payments.IsAdmin(t.in.UserID) {
		msg += "\n\n" + e.text(t, "help_admin", nil)
	}
	e.send(ctx, t, msg)
}

func (e *Engine) cmdLang(ctx context.Context, t *turn, args string) {
	lang, ok := locale.Normalize(args)
	if !ok {
		e.reply(ctx, t, "lang_usage", nil)
		return
	}
	if err := e.repo.SetUserLanguage(ctx, t.in.UserID, lang); err != nil {
		e.fail(ctx, t, "set language", err)
		return
	}
	t.lang = lang
	e.reply(ctx, t, "lang_set", nil)
}

func (e *Engine) cmdStats(ctx context.Context, t *turn) {
	pkg, err := e.ent.UserPackage(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "resolve package", err)
		return
	}
	lines, err := e.ent.Usage(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load usage", err)
		return
	}

	var b strings.Builder
	b.WriteString(e.text(t, "stats_header", locale.Args{"package": pkg.Name(t.lang)}))
	if expiry, ok := e.premiumExpiry(ctx, t); ok {
		b.WriteString("\n")
		b.WriteString(e.text(t, "stats_premium_until", locale.Args{"expiry": expiry}))
	}
	for _, line := range lines {
		name := e.tr.ServiceName(t.lang, line.Service)
		b.WriteString("\n")
		if line.Limit == catalog.Unlimited {
			b.WriteString(e.text(t, "stats_line_unlimited", locale.Args{"service": name}))
			continue
		}
		b.WriteString(e.text(t, "stats_line", locale.Args{
			"service": name,
			"used":    line.Used,
			"limit":   line.Limit,
			"left":    line.Remaining,
		}))
	}
	e.send(ctx, t, b.String())
}

func (e *Engine) cmdPremium(ctx context.Context, t *turn) {
	active, err := e.ent.IsPremiumActive(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "check premium", err)
		return
	}
	pkg, err := e.ent.UserPackage(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "resolve package", err)
		return
	}

	var head string
	switch {
	case !active:
		head = e.text(t, "premium_inactive", locale.Args{"package": pkg.Name(t.lang)})
	default:
		if expiry, ok := e.premiumExpiry(ctx, t); ok {
			head = e.text(t, "premium_active", locale.Args{"package": pkg.Name(t.lang), "expiry": expiry})
		} else {
			head = e.text(t, "premium_active_forever", locale.Args{"package": pkg.Name(t.lang)})
		}
	}
	e.send(ctx, t, head+"\n\n"+e.packagesText(t)+"\n\n"+e.text(t, "buy_hint", nil))
}

// premiumExpiry returns the formatted expiry of active premium.
func (e *Engine) premiumExpiry(ctx context.Context, t *turn) (string, bool) {
	active, err := e.ent.IsPremiumActive(ctx, t.in.UserID)
	if err != nil || !active {
		return "", false
	}
	u, err := e.repo.GetUser(ctx, t.in.UserID)
	if err != nil || u.PremiumExpiry == nil {
		return "", false
	}
	return u.PremiumExpiry.Format(dateLayout), true
}

func (e *Engine) packagesText(t *turn) string {
	var b strings.Builder
	b.WriteString(e.text(t, "packages_header", nil))
	for _, pkg := range e.catalog.Paid() {
		b.WriteString("\n")
		b.WriteString(e.text(t, "package_line", locale.Args{
			"name":  pkg.Name(t.lang),
			"key":   pkg.Key,
			"price": locale.FormatAmount(pkg.Price),
			"days":  pkg.DurationDays,
		}))
	}
	return b.String()
}

func (e *Engine) cmdCancel(ctx context.Context, t *turn) {
	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}
	if st.Empty() {
		e.reply(ctx, t, "nothing_to_cancel", nil)
		return
	}
	if err := e.sessions.Clear(ctx, t.in.UserID); err != nil {
		e.fail(ctx, t, "clear session", err)
		return
	}
	e.reply(ctx, t, "cancelled", nil)
}

func (e *Engine) text(t *turn, key string, args locale.Args) string {
	return e.tr.Text(t.lang, key, args)
}

func (e *Engine) reply(ctx context.Context, t *turn, key string, args locale.Args) {
	e.send(ctx, t, e.text(t, key, args))
}

func (e *Engine) send(ctx context.Context, t *turn, text string) {
	e.sendTo(ctx, t.in.Chat, text)
}

func (e *Engine) sendTo(ctx context.Context, to types.JID, text string) {
	if err := e.sender.SendText(ctx, to, text); err != nil {
		e.logger.Error("send message failed", "to", to.String(), "error", err)
	}
}

// fail logs err and tells the user something went wrong.
func (e *Engine) fail(ctx context.Context, t *turn, op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	e.logger.Error(op+" failed", "user_id", t.in.UserID, "error", err)
	if e.metrics != nil {
		e.metrics.Errors.WithLabelValues("convo").Inc()
	}
	e.reply(ctx, t, "error", nil)
}
