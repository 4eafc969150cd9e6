package convo_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ai-bot/internal/ai"
	"ai-bot/internal/cache"
	"ai-bot/internal/catalog"
	"ai-bot/internal/convo"
	"ai-bot/internal/entitlement"
	"ai-bot/internal/locale"
	"ai-bot/internal/payment"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"
	"ai-bot/internal/session"
	"ai-bot/internal/wa"
	"ai-bot/migrations"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

const (
	adminID int64 = 100
	userID  int64 = 998901112233
)

var t0 = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

type sentMessage struct {
	To   types.JID
	Text string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sentMessage
	fail bool
}

func (s *fakeSender) SendText(_ context.Context, to types.JID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("offline")
	}
	s.msgs = append(s.msgs, sentMessage{To: to, Text: text})
	return nil
}

// take returns and forgets everything sent to to.
func (s *fakeSender) take(to types.JID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	rest := s.msgs[:0]
	for _, m := range s.msgs {
		if m.To == to {
			out = append(out, m.Text)
			continue
		}
		rest = append(rest, m)
	}
	s.msgs = rest
	return out
}

func (s *fakeSender) last(to types.JID) string {
	msgs := s.take(to)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type fixture struct {
	engine   *convo.Engine
	sender   *fakeSender
	repo     *repo.SQLiteRepository
	sessions *session.Store
	clock    *entitlement.FakeClock
	tr       *locale.Translator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := repo.NewSQLite(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.NoError(t, r.RunMigrations(ctx, migrations.SQLite()))

	mr := miniredis.RunT(t)
	rdb := cache.New(cache.Config{Addr: mr.Addr()}, logger)
	t.Cleanup(func() { _ = rdb.Close() })

	reg, err := catalog.New(catalog.DefaultPackages())
	require.NoError(t, err)

	clock := entitlement.NewFakeClock(t0)
	ent := entitlement.NewService(reg, r, clock, nil, logger)
	promos := promo.New(r, clock, nil, logger)
	wf := payment.New(payment.Options{
		Catalog:       reg,
		Repository:    r,
		Promos:        promos,
		Clock:         clock,
		AdminIDs:      []int64{adminID},
		PaymentTarget: "8600 1234 5678 9012",
		PaymentHolder: "AI BOT LLC",
	}, logger)

	sender := &fakeSender{}
	sessions := session.New(rdb, time.Hour)
	tr := locale.New(locale.English)
	engine := convo.New(convo.Dependencies{
		Sender:      sender,
		Repository:  r,
		Catalog:     reg,
		Entitlement: ent,
		Payments:    wf,
		Promos:      promos,
		Sessions:    sessions,
		AI:          ai.New(ai.Config{}, logger, nil, nil),
		Translator:  tr,
		Clock:       clock,
	}, convo.Config{AdminNotifyJID: "120363000000000000@g.us"}, logger)
	wf.SetNotifier(engine)

	return &fixture{engine: engine, sender: sender, repo: r, sessions: sessions, clock: clock, tr: tr}
}

func (f *fixture) say(id int64, text string) {
	f.engine.Handle(context.Background(), convo.Incoming{UserID: id, Chat: wa.UserJID(id), Name: "Ali", Text: text})
}

func (f *fixture) en(key string, args locale.Args) string {
	return f.tr.Text(locale.English, key, args)
}

func TestProcessMessageStart(t *testing.T) {
	f := newFixture(t)
	jid := wa.UserJID(userID)
	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: jid, Sender: jid},
			ID:            "ABC",
			PushName:      "Ali",
		},
		Message: &waProto.Message{Conversation: proto.String("/start")},
	}

	f.engine.ProcessMessage(context.Background(), evt)

	msg := f.sender.last(jid)
	assert.Contains(t, msg, f.en("welcome", locale.Args{"name": "Ali"}))
	assert.Contains(t, msg, "/translate")

	u, err := f.repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u.DisplayName)
	assert.Equal(t, "Ali", *u.DisplayName)
	assert.Equal(t, locale.English, u.Language)
}

func TestChatQuota(t *testing.T) {
	f := newFixture(t)
	jid := wa.UserJID(userID)
	chat := f.tr.ServiceName(locale.English, catalog.ServiceChat)

	for i := 1; i <= 5; i++ {
		f.say(userID, "/chat hello")
		msg := f.sender.last(jid)
		assert.Contains(t, msg, `"hello"`)
		assert.Contains(t, msg, f.en("usage_left", locale.Args{"service": chat, "left": 5 - i}))
	}

	f.say(userID, "/chat hello")
	assert.Equal(t, f.en("quota_exceeded", locale.Args{"service": chat, "used": 5, "limit": 5}), f.sender.last(jid))

	// Free text is chat too.
	f.say(userID, "are you there?")
	assert.Contains(t, f.sender.last(jid), "5/5")

	f.clock.Advance(24*time.Hour + time.Second)
	f.say(userID, "are you there?")
	assert.Contains(t, f.sender.last(jid), f.en("usage_left", locale.Args{"service": chat, "left": 4}))
}

func TestWizard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jid := wa.UserJID(userID)
	image := f.tr.ServiceName(locale.English, catalog.ServiceImageGeneration)

	f.say(userID, "/image")
	assert.Equal(t, f.en("wizard_prompt", locale.Args{"service": image}), f.sender.last(jid))

	st, err := f.sessions.Load(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, st.Wizard)
	assert.Equal(t, catalog.ServiceImageGeneration, st.Wizard.Service)

	f.say(userID, "a red cat")
	msg := f.sender.last(jid)
	assert.Contains(t, msg, f.en("ai_placeholder", locale.Args{"service": image, "prompt": "a red cat"}))
	assert.Contains(t, msg, f.en("usage_left", locale.Args{"service": image, "left": 4}))

	st, err = f.sessions.Load(ctx, userID)
	require.NoError(t, err)
	assert.True(t, st.Empty())

	rec, err := f.repo.GetUsage(ctx, userID, catalog.ServiceImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestTranslate(t *testing.T) {
	f := newFixture(t)
	jid := wa.UserJID(userID)

	f.say(userID, "/translate en Salom dunyo")
	assert.Contains(t, f.sender.last(jid), `"Salom dunyo"`)

	f.say(userID, "/translate")
	assert.Equal(t, f.en("translate_usage", nil), f.sender.last(jid))
	f.say(userID, "Salom")
	assert.Equal(t, f.en("translate_usage", nil), f.sender.last(jid))
}

func TestCheckoutWithPromo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userChat := wa.UserJID(userID)
	adminChat := wa.UserJID(adminID)

	f.say(adminID, "/newpromo sale20 20 1")
	assert.Equal(t, f.en("promo_created", locale.Args{"code": "SALE20", "percent": 20}), f.sender.last(adminChat))

	f.say(userID, "/buy pro")
	assert.Equal(t, f.en("promo_prompt", locale.Args{"package": "Pro", "price": "450 000"}), f.sender.last(userChat))

	f.say(userID, "sale20")
	msgs := f.sender.take(userChat)
	require.Len(t, msgs, 2)
	assert.Equal(t, f.en("promo_applied", locale.Args{"code": "SALE20", "percent": 20, "price": "450 000", "amount": "360 000"}), msgs[0])
	assert.Contains(t, msgs[1], "360 000")
	assert.Contains(t, msgs[1], "8600 1234 5678 9012")

	pending, err := f.repo.ListPaymentsByStatus(ctx, repo.PaymentPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID
	assert.Contains(t, msgs[1], id)

	f.say(userID, "/paid")
	assert.Equal(t, f.en("paid_reported", locale.Args{"id": id}), f.sender.last(userChat))
	report := f.sender.last(adminChat)
	assert.Contains(t, report, "/confirm "+id)
	assert.Contains(t, report, "SALE20")
	groupChat, err := types.ParseJID("120363000000000000@g.us")
	require.NoError(t, err)
	assert.Equal(t, report, f.sender.last(groupChat))

	f.say(adminID, "/confirm "+id)
	assert.Equal(t, f.en("admin_confirmed", locale.Args{"id": id, "user": userID}), f.sender.last(adminChat))
	assert.Equal(t, f.en("payment_confirmed_user", locale.Args{
		"package": "Pro",
		"expiry":  t0.AddDate(0, 0, 30).Format("2006-01-02"),
	}), f.sender.last(userChat))

	f.say(adminID, "/confirm "+id)
	assert.Equal(t, f.en("payment_not_found", locale.Args{"id": id}), f.sender.last(adminChat))

	f.say(userID, "/chat hi")
	assert.NotContains(t, f.sender.last(userChat), "left today")

	f.say(userID, "/stats")
	stats := f.sender.last(userChat)
	assert.Contains(t, stats, f.en("stats_header", locale.Args{"package": "Pro"}))
	assert.Contains(t, stats, "2025-03-05")

	f.say(adminID, "/promos")
	assert.Contains(t, f.sender.last(adminChat), "SALE20: -20%, used 1/1, inactive")
}

func TestCheckoutSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jid := wa.UserJID(userID)

	f.say(userID, "/buy basic")
	assert.Equal(t, f.en("free_package_selected", locale.Args{"package": "Basic"}), f.sender.last(jid))

	f.say(userID, "/buy gold")
	assert.Equal(t, f.en("unknown_package", locale.Args{"key": "gold"}), f.sender.last(jid))
	f.say(userID, "standard")
	assert.Equal(t, f.en("promo_prompt", locale.Args{"package": "Standard", "price": "50 000"}), f.sender.last(jid))

	f.say(userID, "/skip")
	msgs := f.sender.take(jid)
	require.Len(t, msgs, 2)
	assert.Equal(t, f.en("promo_skipped", locale.Args{"price": "50 000"}), msgs[0])

	f.say(userID, "/cancel")
	assert.Equal(t, f.en("cancelled", nil), f.sender.last(jid))
	f.say(userID, "/cancel")
	assert.Equal(t, f.en("nothing_to_cancel", nil), f.sender.last(jid))

	// The pending payment survives the cancelled dialog.
	pending, err := f.repo.ListPaymentsByStatus(ctx, repo.PaymentPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	f.say(userID, "/paid")
	assert.Equal(t, f.en("paid_reported", locale.Args{"id": pending[0].ID}), f.sender.last(jid))

	f.say(adminID, "/reject "+pending[0].ID)
	assert.Equal(t, f.en("admin_rejected", locale.Args{"id": pending[0].ID, "user": userID}), f.sender.last(wa.UserJID(adminID)))
	assert.Equal(t, f.en("payment_rejected_user", locale.Args{"id": pending[0].ID}), f.sender.last(jid))

	f.say(userID, "/paid")
	assert.Equal(t, f.en("paid_no_payment", nil), f.sender.last(jid))

	f.say(userID, "/promo ABC")
	assert.Equal(t, f.en("no_checkout", nil), f.sender.last(jid))
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t)
	adminChat := wa.UserJID(adminID)
	userChat := wa.UserJID(userID)

	f.say(userID, "/pending")
	assert.Equal(t, f.en("admin_unauthorized", nil), f.sender.last(userChat))

	f.say(adminID, "/pending")
	assert.Equal(t, f.en("pending_empty", nil), f.sender.last(adminChat))

	f.say(adminID, "/newpromo x 150")
	assert.Equal(t, f.en("promo_invalid_discount", nil), f.sender.last(adminChat))
	f.say(adminID, "/newpromo")
	assert.Equal(t, f.en("promo_usage", nil), f.sender.last(adminChat))
	f.say(adminID, "/newpromo welcome 10")
	f.say(adminID, "/newpromo WELCOME 15")
	assert.Equal(t, f.en("promo_exists", locale.Args{"code": "WELCOME"}), f.sender.last(adminChat))

	f.say(adminID, "/grant 555 7")
	assert.Equal(t, f.en("user_not_found", locale.Args{"user": 555}), f.sender.last(adminChat))
	f.say(adminID, "/grant abc")
	assert.Equal(t, f.en("grant_usage", nil), f.sender.last(adminChat))

	f.say(userID, "hi")
	f.sender.take(userChat)
	f.say(adminID, "/grant 998901112233 7")
	assert.Equal(t, f.en("granted", locale.Args{"user": userID, "days": 7}), f.sender.last(adminChat))

	f.say(userID, "/premium")
	assert.Contains(t, f.sender.last(userChat), f.en("premium_active", locale.Args{
		"package": "Standard",
		"expiry":  t0.AddDate(0, 0, 7).Format("2006-01-02"),
	}))

	f.say(userID, "/buy basic")
	assert.Equal(t, f.en("premium_blocks_free", nil), f.sender.last(userChat))
	f.say(userID, "/cancel")
	assert.Equal(t, f.en("nothing_to_cancel", nil), f.sender.last(userChat), "checkout ends")

	f.say(adminID, "/revoke 998901112233")
	assert.Equal(t, f.en("revoked", locale.Args{"user": userID}), f.sender.last(adminChat))

	f.say(adminID, "/adminstats")
	assert.Contains(t, f.sender.last(adminChat), "Users: 2")

	f.say(adminID, "/help")
	assert.Contains(t, f.sender.last(adminChat), "/confirm <id>")
	f.say(userID, "/help")
	assert.NotContains(t, f.sender.last(userChat), "/confirm <id>")
}

func TestLanguageAndUnknownCommand(t *testing.T) {
	f := newFixture(t)
	jid := wa.UserJID(userID)

	f.say(userID, "/foo")
	assert.Equal(t, f.en("unknown_command", nil), f.sender.last(jid))

	f.say(userID, "/lang RU")
	assert.Equal(t, f.tr.Text(locale.Russian, "lang_set", nil), f.sender.last(jid))

	f.say(userID, "/lang klingon")
	assert.Equal(t, f.tr.Text(locale.Russian, "lang_usage", nil), f.sender.last(jid))
}

func TestPaymentReportedSendFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = true

	err := f.engine.PaymentReported(context.Background(), payment.Report{
		Payment: repo.Payment{ID: "P1", UserID: userID, PackageKey: "pro", Amount: 450000},
		Package: catalog.Package{Key: "pro"},
	})
	assert.Error(t, err)
}

func TestScheduledAdminJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminChat := wa.UserJID(adminID)
	groupChat, err := types.ParseJID("120363000000000000@g.us")
	require.NoError(t, err)

	require.NoError(t, f.engine.RemindPending(ctx))
	assert.Empty(t, f.sender.take(adminChat))

	f.say(userID, "/buy standard")
	f.say(userID, "/skip")
	f.sender.take(wa.UserJID(userID))

	require.NoError(t, f.engine.RemindPending(ctx))
	want := f.en("pending_reminder", locale.Args{"count": 1})
	assert.Equal(t, want, f.sender.last(adminChat))
	assert.Equal(t, want, f.sender.last(groupChat))

	require.NoError(t, f.engine.SendDailyDigest(ctx))
	digest := f.sender.last(adminChat)
	assert.Contains(t, digest, "Users: 1")
	assert.Contains(t, digest, "Pending payments: 1")
	assert.Equal(t, digest, f.sender.last(groupChat))

	f.sender.fail = true
	assert.Error(t, f.engine.SendDailyDigest(ctx))
}
