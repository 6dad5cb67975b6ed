// Package poster wraps the operator-supplied posting bots. The
// configuration bot the users talk to is a different bot entirely; clients
// here are created from credentials stored per operator.
package poster

import (
	"context"
	"fmt"
	"sync"

	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"go.uber.org/ratelimit"
)

// Factory yields a PosterAPI bound to one posting-bot token.
type Factory interface {
	Client(token string) (telegoapi.PosterAPI, error)
}

// TelegoFactory creates telego-backed posting clients and caches them per
// token. All clients share one rate limiter so the process stays inside the
// Bot API flood limits regardless of how many operators fire at once.
type TelegoFactory struct {
	mu      sync.Mutex
	clients map[string]*client
	limiter ratelimit.Limiter
}

func NewTelegoFactory() *TelegoFactory {
	return &TelegoFactory{
		clients: make(map[string]*client),
		limiter: ratelimit.New(20),
	}
}

func (f *TelegoFactory) Client(token string) (telegoapi.PosterAPI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[token]; ok {
		return c, nil
	}

	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, false))
	if err != nil {
		return nil, fmt.Errorf("create posting bot client: %w", err)
	}
	c := &client{bot: bot, limiter: f.limiter}
	f.clients[token] = c
	return c, nil
}

type client struct {
	bot     *telego.Bot
	limiter ratelimit.Limiter
}

func (c *client) GetMe(ctx context.Context) (*telego.User, error) {
	return c.bot.GetMe(ctx)
}

func (c *client) GetChat(ctx context.Context, params *telego.GetChatParams) (*telego.ChatFullInfo, error) {
	return c.bot.GetChat(ctx, params)
}

func (c *client) GetChatAdministrators(ctx context.Context, params *telego.GetChatAdministratorsParams) ([]telego.ChatMember, error) {
	return c.bot.GetChatAdministrators(ctx, params)
}

func (c *client) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	c.limiter.Take()
	return c.bot.SendPhoto(ctx, params)
}

func (c *client) SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error) {
	c.limiter.Take()
	return c.bot.SendVideo(ctx, params)
}

func (c *client) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	c.limiter.Take()
	return c.bot.SendDocument(ctx, params)
}
