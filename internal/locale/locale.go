// Package locale renders user-facing text in the supported languages.
package locale

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Supported language codes.
const (
	Russian = "ru"
	Uzbek   = "uz"
	English = "en"
)

// Languages lists supported codes in menu order.
var Languages = []string{Russian, Uzbek, English}

// Args are placeholder values; {name} in a message is replaced by Args["name"].
type Args map[string]any

// Translator looks messages up by language with a fallback language.
type Translator struct {
	fallback string
}

// New returns a Translator falling back to lang, or Russian when lang is unsupported.
func New(fallback string) *Translator {
	if norm, ok := Normalize(fallback); ok {
		return &Translator{fallback: norm}
	}
	return &Translator{fallback: Russian}
}

// Fallback returns the default language.
func (t *Translator) Fallback() string {
	return t.fallback
}

// Normalize maps user input such as "RU" or "en-US" to a supported code.
func Normalize(lang string) (string, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case Russian, Uzbek, English:
		return lang, true
	}
	return "", false
}

// Text renders key in lang. Unknown keys render as the key itself.
func (t *Translator) Text(lang, key string, args Args) string {
	msg, ok := lookup(lang, key)
	if !ok {
		msg, ok = lookup(t.fallback, key)
	}
	if !ok {
		msg, ok = lookup(English, key)
	}
	if !ok {
		return key
	}
	return fill(msg, args)
}

// ServiceName returns the display name of a gated service.
func (t *Translator) ServiceName(lang, service string) string {
	return t.Text(lang, "service_"+service, nil)
}

func lookup(lang, key string) (string, bool) {
	table, ok := messages[lang]
	if !ok {
		return "", false
	}
	msg, ok := table[key]
	return msg, ok
}

func fill(msg string, args Args) string {
	if len(args) == 0 {
		return msg
	}
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(args)*2)
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(args[name]))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// FormatAmount groups digits by thousands with spaces: 450000 -> "450 000".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
