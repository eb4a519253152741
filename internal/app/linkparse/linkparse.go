/*
Package linkparse rewrites room description markup into clickable affordances.

Two link forms are recognised:

	[[display text->target]]   item pickup, room navigation or client action
	[[roomId]]                 room navigation labelled with the room id

Both forms are matched in a single left-to-right scan of the original description; at any
position the complex form wins. Each match is resolved by an ordered rule list. A match no rule
resolves is dropped and logged, never returned as an error. Parse has no side effects besides
that diagnostic, so equal inputs give equal outputs.
*/
package linkparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"hmspace/internal/pkg/logx"
)

// ItemTarget is the complex-form target that turns the display text into a held item.
const ItemTarget = "item"

var linkPattern = regexp.MustCompile(`\[\[([^\]]*?)->([^\]]*?)\]\]|(?s:\[\[(.*?)\]\])`)

// LiveRoom is the part of a room the parser needs: whether it exists and how many are in it.
type LiveRoom struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Users       []string `json:"users"`
}

// RoomData is the live room view keyed by room id.
type RoomData map[string]LiveRoom

// link is one matched piece of markup.
type link struct {
	text    string
	target  string
	complex bool
}

// rule renders a link it recognises and reports whether it did.
type rule struct {
	name    string
	complex bool
	resolve func(p *Parser, l link, rooms RoomData) (string, bool)
}

// rules are tried in order; the first that resolves a link renders it.
var rules = []rule{
	{name: "item", complex: true, resolve: resolveItem},
	{name: "room", complex: true, resolve: resolveRoom},
	{name: "action", complex: true, resolve: resolveAction},
	{name: "room", complex: false, resolve: resolveRoom},
}

// Parser renders descriptions against an action registry.
type Parser struct {
	actions ActionRegistry
	logger  zerolog.Logger
}

// NewParser returns a Parser that resolves action links against actions.
func NewParser(actions ActionRegistry) *Parser {
	return &Parser{
		actions: actions,
		logger:  logx.Component("linkparse"),
	}
}

// WithLogger returns a copy of p that writes diagnostics to logger.
func (p *Parser) WithLogger(logger zerolog.Logger) *Parser {
	cp := *p
	cp.logger = logger
	return &cp
}

// Parse returns description with every link replaced by its affordance.
func (p *Parser) Parse(description string, rooms RoomData) string {
	matches := linkPattern.FindAllStringSubmatchIndex(description, -1)
	if len(matches) == 0 {
		return description
	}

	var b strings.Builder
	b.Grow(len(description))

	last := 0
	for _, m := range matches {
		b.WriteString(description[last:m[0]])
		last = m[1]

		l := link{complex: m[2] >= 0}
		if l.complex {
			l.text = description[m[2]:m[3]]
			l.target = description[m[4]:m[5]]
		} else {
			l.target = description[m[6]:m[7]]
			l.text = l.target
		}

		b.WriteString(p.render(l, rooms))
	}
	b.WriteString(description[last:])

	return b.String()
}

func (p *Parser) render(l link, rooms RoomData) string {
	for _, r := range rules {
		if r.complex != l.complex {
			continue
		}
		if out, ok := r.resolve(p, l, rooms); ok {
			return out
		}
	}

	p.logger.Warn().
		Str("target", l.target).
		Bool("complex", l.complex).
		Msg("Dropped description link with unknown target")
	return ""
}

func resolveItem(_ *Parser, l link, _ RoomData) (string, bool) {
	if l.target != ItemTarget {
		return "", false
	}
	return anchor("data-item", l.text, l.text), true
}

func resolveRoom(_ *Parser, l link, rooms RoomData) (string, bool) {
	room, ok := rooms[l.target]
	if !ok {
		return "", false
	}

	label := l.text
	if n := len(room.Users); n > 0 {
		label += " (" + strconv.Itoa(n) + ")"
	}
	return anchor("data-room", l.target, label), true
}

func resolveAction(p *Parser, l link, _ RoomData) (string, bool) {
	if p.actions == nil || !p.actions.Has(l.target) {
		return "", false
	}
	return anchor("data-action", l.target, l.text), true
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&#39;",
	`"`, "&#34;",
	"[", "&#91;",
	"]", "&#93;",
)

func anchor(attr, value, label string) string {
	return "<a class='room-link' href='#' " + attr + "='" + escaper.Replace(value) + "'>" + escaper.Replace(label) + "</a>"
}
