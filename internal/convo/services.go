package convo

import (
	"context"
	"strings"

	"ai-bot/internal/ai"
	"ai-bot/internal/catalog"
	"ai-bot/internal/locale"
	"ai-bot/internal/payment"
	"ai-bot/internal/session"
)

var serviceCommands = map[string]string{
	"/chat":      catalog.ServiceChat,
	"/ask":       catalog.ServiceChat,
	"/translate": catalog.ServiceTranslation,
	"/write":     catalog.ServiceTextGeneration,
	"/text":      catalog.ServiceTextGeneration,
	"/video":     catalog.ServiceVideoCreation,
	"/image":     catalog.ServiceImageGeneration,
	"/voice":     catalog.ServiceVoiceMusic,
	"/music":     catalog.ServiceVoiceMusic,
}

// cmdService runs a service command, or waits for the prompt in the next
// message when none was given.
func (e *Engine) cmdService(ctx context.Context, t *turn, service, cmd, args string) {
	if args != "" {
		e.runWizard(ctx, t, service, args)
		return
	}

	st, err := e.sessions.Load(ctx, t.in.UserID)
	if err != nil {
		e.fail(ctx, t, "load session", err)
		return
	}
	st.Wizard = &session.Wizard{Service: service, Command: cmd}
	if st.Checkout != nil && st.Checkout.Step != payment.StepWaitingForPayment {
		st.Checkout = nil
	}
	if err := e.sessions.Save(ctx, t.in.UserID, st); err != nil {
		e.fail(ctx, t, "save session", err)
		return
	}

	if service == catalog.ServiceTranslation {
		e.reply(ctx, t, "translate_usage", nil)
		return
	}
	e.reply(ctx, t, "wizard_prompt", locale.Args{"service": e.tr.ServiceName(t.lang, service)})
}

func (e *Engine) runWizard(ctx context.Context, t *turn, service, input string) {
	if service != catalog.ServiceTranslation {
		e.runService(ctx, t, service, input, "")
		return
	}
	target, text, ok := parseTranslation(input)
	if !ok {
		e.reply(ctx, t, "translate_usage", nil)
		return
	}
	e.runService(ctx, t, service, text, target)
}

// parseTranslation splits "<lang> <text>".
func parseTranslation(input string) (string, string, bool) {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return "", "", false
	}
	target := strings.ToLower(fields[0])
	if len(target) < 2 || len(target) > 5 {
		return "", "", false
	}
	for _, r := range target {
		if (r < 'a' || r > 'z') && r != '-' {
			return "", "", false
		}
	}
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), fields[0]))
	return target, text, true
}

// runService performs one gated AI call and replies with the result and the
// remaining daily quota.
func (e *Engine) runService(ctx context.Context, t *turn, service, prompt, target string) {
	var resp ai.Response
	dec, err := e.ent.Gate(ctx, t.in.UserID, service, func(ctx context.Context) error {
		r, err := e.ai.Generate(ctx, ai.Request{
			UserID:         t.in.UserID,
			Service:        service,
			Prompt:         prompt,
			Language:       t.lang,
			TargetLanguage: target,
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		e.fail(ctx, t, "generate "+service, err)
		return
	}

	name := e.tr.ServiceName(t.lang, service)
	if !dec.Allowed {
		e.reply(ctx, t, "quota_exceeded", locale.Args{"service": name, "used": dec.Used, "limit": dec.Limit})
		return
	}

	msg := resp.Text
	if resp.Placeholder {
		msg = e.text(t, "ai_placeholder", locale.Args{"service": name, "prompt": prompt})
	}
	if resp.MediaURL != "" {
		msg = strings.TrimSpace(msg + "\n" + resp.MediaURL)
	}
	if !dec.Unlimited() {
		left := dec.Limit - dec.Used
		if left < 0 {
			left = 0
		}
		msg += "\n\n" + e.text(t, "usage_left", locale.Args{"service": name, "left": left})
	}
	e.send(ctx, t, msg)
}
