package handlers

import (
	"context"
	"fmt"
	"sync"

	"smmpost-bot/internal/database"
	"smmpost-bot/internal/poster"
	"smmpost-bot/internal/registrar"
)

// Action types for the user-action audit log.
const (
	ActionCommandStart   = "command_start"
	ActionSetToken       = "set_bot_token"
	ActionSetupChannels  = "setup_channels"
	ActionEnqueuePost    = "enqueue_post"
	ActionSetPostsPerDay = "set_posts_per_day"
	ActionToggleRepost   = "toggle_repost"
)

// ConversationState tracks where a user is in the menu flow.
type ConversationState int

const (
	StateMainMenu ConversationState = iota
	StateAwaitingToken
	StateAwaitingChannels
	StateBulkUpload
)

// ChannelRegistrar validates and persists a batch of channel handles.
type ChannelRegistrar interface {
	Register(ctx context.Context, userID int64, input string) (*registrar.Result, error)
}

// ScheduleInstaller (re)installs an operator's daily posting triggers.
type ScheduleInstaller interface {
	Install(userID int64, postsPerDay int)
}

// MessageHandler handles incoming Telegram messages and callbacks for the
// configuration bot: the menu, the token/channel/bulk-upload flows and the
// queue listings.
type MessageHandler struct {
	operators database.OperatorRepository
	channels  database.ChannelRepository
	posts     database.PostRepository
	settings  database.SettingsRepository

	registrar    ChannelRegistrar
	sched        ScheduleInstaller
	clients      poster.Factory
	actionLogger database.UserActionLogger

	// Per-user conversation state. Guarded by muStates.
	states   map[int64]ConversationState
	muStates sync.RWMutex
}

type Deps struct {
	Operators    database.OperatorRepository
	Channels     database.ChannelRepository
	Posts        database.PostRepository
	Settings     database.SettingsRepository
	Registrar    ChannelRegistrar
	Scheduler    ScheduleInstaller
	Clients      poster.Factory
	ActionLogger database.UserActionLogger
}

// NewMessageHandler creates a handler from its dependencies. All
// dependencies are required.
func NewMessageHandler(deps Deps) (*MessageHandler, error) {
	if deps.Operators == nil {
		return nil, fmt.Errorf("operator repository cannot be nil")
	}
	if deps.Channels == nil {
		return nil, fmt.Errorf("channel repository cannot be nil")
	}
	if deps.Posts == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings repository cannot be nil")
	}
	if deps.Registrar == nil {
		return nil, fmt.Errorf("registrar cannot be nil")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if deps.Clients == nil {
		return nil, fmt.Errorf("poster factory cannot be nil")
	}
	if deps.ActionLogger == nil {
		return nil, fmt.Errorf("action logger cannot be nil")
	}
	return &MessageHandler{
		operators:    deps.Operators,
		channels:     deps.Channels,
		posts:        deps.Posts,
		settings:     deps.Settings,
		registrar:    deps.Registrar,
		sched:        deps.Scheduler,
		clients:      deps.Clients,
		actionLogger: deps.ActionLogger,
		states:       make(map[int64]ConversationState),
	}, nil
}

// State returns the user's current conversation state.
func (h *MessageHandler) State(userID int64) ConversationState {
	h.muStates.RLock()
	defer h.muStates.RUnlock()
	return h.states[userID]
}

func (h *MessageHandler) setState(userID int64, state ConversationState) {
	h.muStates.Lock()
	h.states[userID] = state
	h.muStates.Unlock()
}
