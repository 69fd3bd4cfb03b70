// Package conversation drives the guided multi-turn flows managers and guests
// go through, one inbound event at a time.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/stay-concierge/internal/command"
	"github.com/tendant/stay-concierge/internal/session"
	"github.com/tendant/stay-concierge/pkg/access"
	"github.com/tendant/stay-concierge/pkg/content"
	"github.com/tendant/stay-concierge/pkg/domain"
	"github.com/tendant/stay-concierge/pkg/identity"
)

const defaultTurnTimeout = 10 * time.Second

// Config holds engine settings.
type Config struct {
	TurnTimeout time.Duration
	Logger      *slog.Logger
}

// Engine handles events against the identity, content and access services.
type Engine struct {
	config   Config
	identity *identity.Service
	content  *content.Service
	access   *access.Service
	sessions session.Store
	logger   *slog.Logger
}

// NewEngine creates a new conversation engine.
func NewEngine(config Config, identitySvc *identity.Service, contentSvc *content.Service, accessSvc *access.Service, sessions session.Store) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = defaultTurnTimeout
	}
	return &Engine{
		config:   config,
		identity: identitySvc,
		content:  contentSvc,
		access:   accessSvc,
		sessions: sessions,
		logger:   logger,
	}
}

// turn carries the state of one event being handled.
type turn struct {
	*Engine
	ctx  context.Context
	ev   Event
	sess *Session
}

// Handle processes one event and always produces a reply. The session is saved
// only when the turn succeeds, so a failed turn can be retried from the same state.
func (e *Engine) Handle(ctx context.Context, ev Event) (reply Reply) {
	ctx, cancel := context.WithTimeout(ctx, e.config.TurnTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while handling event",
				"user_id", ev.UserID,
				"kind", ev.Kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			reply = Reply{Text: msgApology}
		}
	}()

	if err := e.identity.Touch(ctx, ev.UserID, ev.DisplayName, ev.Username); err != nil {
		return e.apology(ev, "failed to register user", err)
	}

	rec, err := e.sessions.Load(ctx, ev.UserID)
	if err != nil {
		return e.apology(ev, "failed to load session", domain.Unavailable(err))
	}
	sess, err := DecodeSession(rec)
	if err != nil {
		e.logger.Warn("conversation state lost", "user_id", ev.UserID, "flow", rec.Flow, "error", err)
	}

	t := &turn{Engine: e, ctx: ctx, ev: ev, sess: sess}
	reply, err = t.dispatch()
	if err != nil {
		return e.apology(ev, "failed to handle event", err)
	}

	next, err := sess.Record()
	if err != nil {
		return e.apology(ev, "failed to encode session", err)
	}
	if err := e.sessions.Save(ctx, ev.UserID, next); err != nil {
		return e.apology(ev, "failed to save session", domain.Unavailable(err))
	}
	return reply
}

func (e *Engine) apology(ev Event, msg string, err error) Reply {
	e.logger.Error(msg,
		"user_id", ev.UserID,
		"kind", ev.Kind,
		"retryable", errors.Is(err, domain.ErrUnavailable),
		"error", err,
	)
	return Reply{Text: msgApology}
}

func (t *turn) dispatch() (Reply, error) {
	switch t.ev.Kind {
	case EventStart:
		c, err := command.ParseStart(t.ev.StartPayload)
		if err != nil {
			return t.badStart(err)
		}
		return t.command(c)

	case EventCommand:
		c, err := command.Parse(t.ev.Command)
		if err != nil {
			t.logger.Warn("unrecognized command", "user_id", t.ev.UserID, "error", err)
			t.sess.ClearFlow()
			return t.menu(msgStaleButton)
		}
		return t.command(c)

	case EventText:
		if c, ok, err := command.ParseSlash(t.ev.Text); ok {
			if err != nil {
				return t.badStart(err)
			}
			return t.command(c)
		}
		if t.sess.Flow == nil {
			return t.menu(msgIdle)
		}
		return t.input(input{text: strings.TrimSpace(t.ev.Text)})

	case EventMedia:
		if t.ev.Media == nil {
			return t.menu(msgIdle)
		}
		if t.sess.Flow == nil {
			return t.menu(msgIdle)
		}
		in := input{
			text:  strings.TrimSpace(t.ev.Media.Caption),
			media: &domain.Media{Kind: t.ev.Media.Kind, Ref: t.ev.Media.Ref},
		}
		return t.input(in)
	}

	return Reply{}, fmt.Errorf("unknown event kind %q", t.ev.Kind)
}

// badStart answers a deep link that grants nothing. Typed and tapped links get
// the same denial so a guessed code reveals nothing.
func (t *turn) badStart(err error) (Reply, error) {
	t.logger.Warn("unrecognized start payload", "user_id", t.ev.UserID, "error", err)
	t.sess.ClearFlow()
	return t.menu(msgDenied)
}

// settle turns expected access failures into replies. Anything else is
// returned for the apology path.
func (t *turn) settle(err error) (Reply, error) {
	switch {
	case err == nil:
		return Reply{}, nil
	case errors.Is(err, domain.ErrForbidden):
		t.logger.Warn("action forbidden", "user_id", t.ev.UserID, "error", err)
		t.sess.ClearFlow()
		return t.menu(msgForbidden)
	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrNotMember),
		errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrInvalidSection),
		errors.Is(err, domain.ErrFixedField),
		errors.Is(err, domain.ErrInvalidSetting):
		t.logger.Warn("access denied", "user_id", t.ev.UserID, "error", err)
		t.sess.ClearFlow()
		return t.menu(msgDenied)
	}
	return Reply{}, err
}

// authorizeTenant checks the user's role in a tenant.
func (t *turn) authorizeTenant(tenantID uuid.UUID, action domain.Action) error {
	_, err := t.identity.Authorize(t.ctx, tenantID, t.ev.UserID, action)
	return err
}

// authorizeAsset loads an asset and checks the user's role in its tenant.
func (t *turn) authorizeAsset(assetID uuid.UUID, action domain.Action) (*domain.Asset, error) {
	asset, err := t.content.Asset(t.ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := t.authorizeTenant(asset.TenantID, action); err != nil {
		return nil, err
	}
	return asset, nil
}

// lost handles a step whose prerequisites are missing: it logs, resets the
// flow to its first step and shows that step's prompt. Nothing is written.
func (t *turn) lost(f Flow) (Reply, error) {
	t.logger.Warn("conversation state lost", "user_id", t.ev.UserID, "flow", f.flowName())

	next := f.restart(t.sess.ActiveTenantID)
	t.sess.Flow = next
	if next == nil {
		return t.menu(msgStateLost)
	}
	r, err := t.prompt(next)
	if err != nil {
		return t.settle(err)
	}
	return prefixed(msgStateLost, r), nil
}

// start enters a flow step and shows its prompt.
func (t *turn) start(f Flow) (Reply, error) {
	r, err := t.prompt(f)
	if err != nil {
		return t.settle(err)
	}
	t.sess.Flow = f
	return r, nil
}

// reprompt keeps the current step and repeats its prompt under a notice.
func (t *turn) reprompt(notice string) (Reply, error) {
	r, err := t.prompt(t.sess.Flow)
	if err != nil {
		return t.settle(err)
	}
	return prefixed(notice, r), nil
}

// invalid re-prompts for validation errors and settles the rest.
func (t *turn) invalid(err error) (Reply, error) {
	if msg, ok := validationText(err); ok {
		return t.reprompt(msg)
	}
	return t.settle(err)
}
