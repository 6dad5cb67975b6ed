// Package registrar validates channel handles against an operator's
// posting bot and persists the valid subset.
package registrar

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"smmpost-bot/internal/database"
	"smmpost-bot/internal/domain"
	"smmpost-bot/internal/poster"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

const checkTimeout = 10 * time.Second

// Accepted is a channel that passed validation and was persisted.
type Accepted struct {
	Channel domain.Channel
}

// Rejected is a handle that failed validation. Err is one of the domain
// sentinels; Title is filled when getChat succeeded before the failure.
type Rejected struct {
	Handle string
	Title  string
	Err    error
}

// Result partitions one registration batch.
type Result struct {
	Accepted []Accepted
	Rejected []Rejected
}

// Registrar checks channels with the operator's posting bot and upserts the
// ones the bot can actually post to.
type Registrar struct {
	operators database.OperatorRepository
	channels  database.ChannelRepository
	clients   poster.Factory
}

func New(operators database.OperatorRepository, channels database.ChannelRepository, clients poster.Factory) *Registrar {
	return &Registrar{operators: operators, channels: channels, clients: clients}
}

// Register validates the free-text handle list (one handle per line) and
// persists every channel where the posting bot holds admin rights. A bad
// handle never aborts the batch; the caller gets both partitions back.
// Returns domain.ErrCredentialMissing when the operator has no stored token.
func (r *Registrar) Register(ctx context.Context, userID int64, input string) (*Result, error) {
	op, err := r.operators.Get(ctx, userID)
	if err != nil {
		if err == domain.ErrOperatorNotFound {
			return nil, domain.ErrCredentialMissing
		}
		return nil, err
	}
	if op.BotToken == "" {
		return nil, domain.ErrCredentialMissing
	}

	botID, err := BotIDFromToken(op.BotToken)
	if err != nil {
		return nil, fmt.Errorf("parse posting bot id: %w", err)
	}

	client, err := r.clients.Client(op.BotToken)
	if err != nil {
		return nil, fmt.Errorf("posting bot client: %w", err)
	}

	result := &Result{}
	for _, line := range strings.Split(input, "\n") {
		handle := strings.TrimSpace(line)
		if handle == "" {
			continue
		}
		result.add(r.checkOne(ctx, client, botID, userID, handle))
	}
	return result, nil
}

func (r *Registrar) checkOne(ctx context.Context, client telegoapi.PosterAPI, botID, userID int64, handle string) (*Accepted, *Rejected) {
	chatID := ChatIDFromHandle(handle)

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	chat, err := client.GetChat(checkCtx, &telego.GetChatParams{ChatID: chatID})
	if err != nil {
		log.Printf("[Registrar Op:%d] getChat(%s) failed: %v", userID, handle, err)
		return nil, &Rejected{Handle: handle, Err: domain.ErrChannelUnreachable}
	}

	admins, err := client.GetChatAdministrators(checkCtx, &telego.GetChatAdministratorsParams{ChatID: chatID})
	if err != nil {
		log.Printf("[Registrar Op:%d] getChatAdministrators(%s) failed: %v", userID, handle, err)
		return nil, &Rejected{Handle: handle, Title: chat.Title, Err: domain.ErrChannelUnreachable}
	}

	isAdmin := false
	for _, member := range admins {
		if member.MemberUser().ID == botID {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return nil, &Rejected{Handle: handle, Title: chat.Title, Err: domain.ErrChannelNotAdmin}
	}

	ch, err := r.channels.Upsert(ctx, userID, handle, chat.Title)
	if err != nil {
		log.Printf("[Registrar Op:%d] upsert channel %s failed: %v", userID, handle, err)
		return nil, &Rejected{Handle: handle, Title: chat.Title, Err: domain.ErrChannelUnreachable}
	}
	return &Accepted{Channel: *ch}, nil
}

func (res *Result) add(accepted *Accepted, rejected *Rejected) {
	if accepted != nil {
		res.Accepted = append(res.Accepted, *accepted)
	}
	if rejected != nil {
		res.Rejected = append(res.Rejected, *rejected)
	}
}

// BotIDFromToken extracts the bot's numeric id, the part of the token
// before the colon.
func BotIDFromToken(token string) (int64, error) {
	idPart, _, found := strings.Cut(token, ":")
	if !found {
		return 0, fmt.Errorf("token has no id part")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token id part is not numeric: %w", err)
	}
	return id, nil
}

// ChatIDFromHandle maps operator input to a Bot API chat id: numeric input
// (private channels like -100...) is used as id, everything else as a
// @username.
func ChatIDFromHandle(handle string) telego.ChatID {
	if id, err := strconv.ParseInt(handle, 10, 64); err == nil {
		return telego.ChatID{ID: id}
	}
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	return telego.ChatID{Username: handle}
}
