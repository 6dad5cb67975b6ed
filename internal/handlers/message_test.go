package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smmpost-bot/internal/domain"
	"smmpost-bot/internal/locales"
	"smmpost-bot/internal/registrar"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockBot is a mock implementing the telegoapi.BotAPI interface
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type MockOperatorRepo struct {
	mock.Mock
}

func (m *MockOperatorRepo) Upsert(ctx context.Context, userID int64, botToken string) error {
	args := m.Called(ctx, userID, botToken)
	return args.Error(0)
}

func (m *MockOperatorRepo) Get(ctx context.Context, userID int64) (*domain.Operator, error) {
	args := m.Called(ctx, userID)
	if op, ok := args.Get(0).(*domain.Operator); ok {
		return op, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockChannelRepo struct {
	mock.Mock
}

func (m *MockChannelRepo) Upsert(ctx context.Context, userID int64, username, title string) (*domain.Channel, error) {
	args := m.Called(ctx, userID, username, title)
	if ch, ok := args.Get(0).(*domain.Channel); ok {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRepo) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	args := m.Called(ctx, id)
	if ch, ok := args.Get(0).(*domain.Channel); ok {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRepo) ListByOperator(ctx context.Context, userID int64) ([]domain.Channel, error) {
	args := m.Called(ctx, userID)
	if chs, ok := args.Get(0).([]domain.Channel); ok {
		return chs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannelRepo) TitlesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	args := m.Called(ctx, ids)
	if titles, ok := args.Get(0).(map[int64]string); ok {
		return titles, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPostRepo struct {
	mock.Mock
}

func (m *MockPostRepo) Enqueue(ctx context.Context, userID int64, contentType, fileID, caption string) (*domain.Post, int, error) {
	args := m.Called(ctx, userID, contentType, fileID, caption)
	if post, ok := args.Get(0).(*domain.Post); ok {
		return post, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockPostRepo) ClaimOldestPending(ctx context.Context, userID int64) (*domain.Post, error) {
	args := m.Called(ctx, userID)
	if post, ok := args.Get(0).(*domain.Post); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepo) MarkPosted(ctx context.Context, postID int64, postedAt time.Time) error {
	args := m.Called(ctx, postID, postedAt)
	return args.Error(0)
}

func (m *MockPostRepo) Release(ctx context.Context, postID int64) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *MockPostRepo) ResetPosted(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepo) RecoverPublishing(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepo) CountByStatus(ctx context.Context, userID int64, status string) (int, error) {
	args := m.Called(ctx, userID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockPostRepo) ListPosted(ctx context.Context, userID int64, limit int) ([]domain.Post, error) {
	args := m.Called(ctx, userID, limit)
	if posts, ok := args.Get(0).([]domain.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepo) ListPending(ctx context.Context, userID int64) ([]domain.Post, error) {
	args := m.Called(ctx, userID)
	if posts, ok := args.Get(0).([]domain.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSettingsRepo struct {
	mock.Mock
}

func (m *MockSettingsRepo) EnsureDefaults(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSettingsRepo) Get(ctx context.Context, userID int64) (*domain.Settings, error) {
	args := m.Called(ctx, userID)
	if s, ok := args.Get(0).(*domain.Settings); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsRepo) SetPostsPerDay(ctx context.Context, userID int64, postsPerDay int) error {
	args := m.Called(ctx, userID, postsPerDay)
	return args.Error(0)
}

func (m *MockSettingsRepo) ToggleRepost(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettingsRepo) ListAll(ctx context.Context) ([]domain.Settings, error) {
	args := m.Called(ctx)
	if s, ok := args.Get(0).([]domain.Settings); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) Register(ctx context.Context, userID int64, input string) (*registrar.Result, error) {
	args := m.Called(ctx, userID, input)
	if res, ok := args.Get(0).(*registrar.Result); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Install(userID int64, postsPerDay int) {
	m.Called(userID, postsPerDay)
}

type MockPosterAPI struct {
	mock.Mock
}

func (m *MockPosterAPI) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*telego.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPosterAPI) GetChat(ctx context.Context, params *telego.GetChatParams) (*telego.ChatFullInfo, error) {
	args := m.Called(ctx, params)
	if chat, ok := args.Get(0).(*telego.ChatFullInfo); ok {
		return chat, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPosterAPI) GetChatAdministrators(ctx context.Context, params *telego.GetChatAdministratorsParams) ([]telego.ChatMember, error) {
	args := m.Called(ctx, params)
	if admins, ok := args.Get(0).([]telego.ChatMember); ok {
		return admins, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPosterAPI) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPosterAPI) SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPosterAPI) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Client(token string) (telegoapi.PosterAPI, error) {
	args := m.Called(token)
	if c, ok := args.Get(0).(telegoapi.PosterAPI); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockActionLogger struct {
	mock.Mock
}

func (m *MockActionLogger) LogUserAction(userID int64, action string, details interface{}) error {
	args := m.Called(userID, action, details)
	return args.Error(0)
}

// --- Fixtures ---

const (
	testUserID = int64(500)
	testChatID = int64(500)
	testToken  = "123456789:AAHtokenLongEnough"
)

type fixture struct {
	bot       *MockBot
	operators *MockOperatorRepo
	channels  *MockChannelRepo
	posts     *MockPostRepo
	settings  *MockSettingsRepo
	reg       *MockRegistrar
	sched     *MockScheduler
	clients   *MockFactory
	api       *MockPosterAPI
	logger    *MockActionLogger
	handler   *MessageHandler
}

func newFixture(t *testing.T) *fixture {
	locales.Init()

	f := &fixture{
		bot:       new(MockBot),
		operators: new(MockOperatorRepo),
		channels:  new(MockChannelRepo),
		posts:     new(MockPostRepo),
		settings:  new(MockSettingsRepo),
		reg:       new(MockRegistrar),
		sched:     new(MockScheduler),
		clients:   new(MockFactory),
		api:       new(MockPosterAPI),
		logger:    new(MockActionLogger),
	}
	handler, err := NewMessageHandler(Deps{
		Operators:    f.operators,
		Channels:     f.channels,
		Posts:        f.posts,
		Settings:     f.settings,
		Registrar:    f.reg,
		Scheduler:    f.sched,
		Clients:      f.clients,
		ActionLogger: f.logger,
	})
	require.NoError(t, err)
	f.handler = handler
	f.logger.On("LogUserAction", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func userMessage(text string) telego.Message {
	return telego.Message{
		MessageID: 1,
		From:      &telego.User{ID: testUserID, LanguageCode: "en"},
		Chat:      telego.Chat{ID: testChatID},
		Text:      text,
	}
}

// expectReply captures one SendMessage and stores the sent text.
func (f *fixture) expectReply(sent *string) {
	f.bot.On("SendMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			params := args.Get(1).(*telego.SendMessageParams)
			*sent = params.Text
		}).
		Return(&telego.Message{}, nil)
}

// --- Tests ---

func TestHandleStartSendsWelcomeWithMenu(t *testing.T) {
	f := newFixture(t)

	f.settings.On("EnsureDefaults", mock.Anything, testUserID).Return(nil)
	f.settings.On("Get", mock.Anything, testUserID).
		Return(&domain.Settings{UserID: testUserID, PostsPerDay: 1}, nil)

	var sent string
	f.bot.On("SendMessage", mock.Anything, mock.MatchedBy(func(params *telego.SendMessageParams) bool {
		sent = params.Text
		_, hasKeyboard := params.ReplyMarkup.(*telego.ReplyKeyboardMarkup)
		return hasKeyboard
	})).Return(&telego.Message{}, nil)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage("/start"))

	require.NoError(t, err)
	assert.Contains(t, sent, "Setup Once, Run Forever")
	assert.Equal(t, StateMainMenu, f.handler.State(testUserID))
	f.settings.AssertExpectations(t)
}

func TestSetupTokenButtonEntersAwaitingState(t *testing.T) {
	f := newFixture(t)

	var sent string
	f.expectReply(&sent)

	localizer := locales.NewLocalizer("en")
	btn := locales.GetMessage(localizer, "BtnSetupToken", nil, nil)
	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage(btn))

	require.NoError(t, err)
	assert.Equal(t, StateAwaitingToken, f.handler.State(testUserID))
	assert.Contains(t, sent, "token")
}

func TestTokenInputRejectsBadFormat(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateAwaitingToken)

	var sent string
	f.expectReply(&sent)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage("notoken"))

	require.NoError(t, err)
	assert.Contains(t, sent, "Invalid")
	// Format failures keep the conversation waiting for a token.
	assert.Equal(t, StateAwaitingToken, f.handler.State(testUserID))
	f.clients.AssertNotCalled(t, "Client", mock.Anything)
	f.operators.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestTokenInputVerifiesAndStores(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateAwaitingToken)

	f.clients.On("Client", testToken).Return(f.api, nil)
	f.api.On("GetMe", mock.Anything).Return(&telego.User{ID: 123456789, Username: "poster_bot"}, nil)
	f.operators.On("Upsert", mock.Anything, testUserID, testToken).Return(nil)
	f.settings.On("Get", mock.Anything, testUserID).
		Return(&domain.Settings{UserID: testUserID, PostsPerDay: 1}, nil)

	var sent string
	f.expectReply(&sent)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage(testToken))

	require.NoError(t, err)
	assert.Contains(t, sent, "poster_bot")
	assert.Contains(t, sent, testToken[:10])
	assert.NotContains(t, sent, testToken)
	assert.Equal(t, StateMainMenu, f.handler.State(testUserID))
	f.operators.AssertExpectations(t)
}

func TestTokenInputRejectedByGetMe(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateAwaitingToken)

	f.clients.On("Client", testToken).Return(f.api, nil)
	f.api.On("GetMe", mock.Anything).Return(nil, errors.New("401 unauthorized"))

	var sent string
	f.expectReply(&sent)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage(testToken))

	require.NoError(t, err)
	assert.Contains(t, sent, "Invalid bot token")
	f.operators.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestChannelsInputWithoutStoredToken(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateAwaitingChannels)

	f.reg.On("Register", mock.Anything, testUserID, "@somewhere").
		Return(nil, domain.ErrCredentialMissing)

	var sent string
	f.expectReply(&sent)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage("@somewhere"))

	require.NoError(t, err)
	assert.Contains(t, sent, "token")
	assert.Equal(t, StateMainMenu, f.handler.State(testUserID))
}

func TestChannelsInputReportsBothPartitions(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateAwaitingChannels)

	f.reg.On("Register", mock.Anything, testUserID, "@good\n@bad").
		Return(&registrar.Result{
			Accepted: []registrar.Accepted{
				{Channel: domain.Channel{ID: 1, Username: "@good", Title: "Good", IsActive: true}},
			},
			Rejected: []registrar.Rejected{
				{Handle: "@bad", Err: domain.ErrChannelNotAdmin},
			},
		}, nil)
	f.settings.On("Get", mock.Anything, testUserID).
		Return(&domain.Settings{UserID: testUserID, PostsPerDay: 1}, nil)

	var sent string
	f.expectReply(&sent)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage("@good\n@bad"))

	require.NoError(t, err)
	assert.Contains(t, sent, "Good")
	assert.Contains(t, sent, "@bad")
	assert.Contains(t, sent, "not admin")
	assert.Equal(t, StateMainMenu, f.handler.State(testUserID))
}

func TestBulkUploadTextFallsBackToMenu(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateBulkUpload)

	f.settings.On("ToggleRepost", mock.Anything, testUserID).Return(true, nil)

	var sent string
	f.expectReply(&sent)

	localizer := locales.NewLocalizer("en")
	btn := locales.GetMessage(localizer, "BtnRepostModeOff", nil, nil)
	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage(btn))

	require.NoError(t, err)
	assert.Equal(t, StateMainMenu, f.handler.State(testUserID))
	f.settings.AssertCalled(t, "ToggleRepost", mock.Anything, testUserID)
}

func TestBulkUploadEnqueuesPhotoAndReinstallsSchedule(t *testing.T) {
	f := newFixture(t)
	f.handler.setState(testUserID, StateBulkUpload)

	message := userMessage("")
	message.Photo = []telego.PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "large", Width: 1280},
	}
	message.Caption = "promo"

	f.posts.On("Enqueue", mock.Anything, testUserID, domain.ContentTypePhoto, "large", "promo").
		Return(&domain.Post{ID: 9, TargetChannels: []int64{10, 11}}, 4, nil)
	f.settings.On("Get", mock.Anything, testUserID).
		Return(&domain.Settings{UserID: testUserID, PostsPerDay: 3}, nil)
	f.sched.On("Install", testUserID, 3).Return()

	var sent string
	f.expectReply(&sent)

	err := f.handler.HandleMessage(context.Background(), f.bot, message)

	require.NoError(t, err)
	assert.Contains(t, sent, "4")
	assert.Equal(t, StateBulkUpload, f.handler.State(testUserID))
	f.sched.AssertExpectations(t)
	f.posts.AssertExpectations(t)
}

func TestUnknownTextInMenuIsIgnored(t *testing.T) {
	f := newFixture(t)

	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage("random chatter"))

	require.NoError(t, err)
	f.bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestHandlePostsPerDayCallback(t *testing.T) {
	f := newFixture(t)

	f.settings.On("SetPostsPerDay", mock.Anything, testUserID, 4).Return(nil)
	f.sched.On("Install", testUserID, 4).Return()
	f.bot.On("AnswerCallbackQuery", mock.Anything, mock.MatchedBy(func(params *telego.AnswerCallbackQueryParams) bool {
		return params.CallbackQueryID == "q1"
	})).Return(nil)

	var edited string
	f.bot.On("EditMessageText", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			edited = args.Get(1).(*telego.EditMessageTextParams).Text
		}).
		Return(&telego.Message{}, nil)

	query := telego.CallbackQuery{
		ID:   "q1",
		From: telego.User{ID: testUserID, LanguageCode: "en"},
		Data: "ppd_4",
		Message: &telego.Message{
			MessageID: 33,
			Chat:      telego.Chat{ID: testChatID},
		},
	}
	err := f.handler.HandleCallbackQuery(context.Background(), f.bot, query)

	require.NoError(t, err)
	assert.Contains(t, edited, "4")
	f.settings.AssertExpectations(t)
	f.sched.AssertExpectations(t)
}

func TestMalformedCallbackOnlyAcknowledges(t *testing.T) {
	f := newFixture(t)

	f.bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)

	query := telego.CallbackQuery{
		ID:   "q2",
		From: telego.User{ID: testUserID},
		Data: "ppd_zero",
	}
	err := f.handler.HandleCallbackQuery(context.Background(), f.bot, query)

	require.NoError(t, err)
	f.settings.AssertNotCalled(t, "SetPostsPerDay", mock.Anything, mock.Anything, mock.Anything)
	f.sched.AssertNotCalled(t, "Install", mock.Anything, mock.Anything)
}

func TestListPostedResolvesTitlesInOneBatch(t *testing.T) {
	f := newFixture(t)
	localizer := locales.NewLocalizer("en")

	posted := time.Now()
	f.posts.On("ListPosted", mock.Anything, testUserID, 20).Return([]domain.Post{
		{ID: 1, ContentType: domain.ContentTypePhoto, PostedAt: &posted, TargetChannels: []int64{10, 11}},
		{ID: 2, ContentType: domain.ContentTypeVideo, PostedAt: &posted, TargetChannels: []int64{10}},
		{ID: 3, ContentType: domain.ContentTypePhoto, PostedAt: &posted, TargetChannels: []int64{12}},
	}, nil)
	// One lookup for the batch, deduplicated, channel 12 vanished.
	f.channels.On("TitlesByIDs", mock.Anything, []int64{10, 12}).
		Return(map[int64]string{10: "Main Channel"}, nil).Once()
	f.posts.On("CountByStatus", mock.Anything, testUserID, domain.PostStatusPosted).Return(3, nil)

	var sent string
	f.expectReply(&sent)

	btn := locales.GetMessage(localizer, "BtnPostedPosts", nil, nil)
	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage(btn))

	require.NoError(t, err)
	assert.Contains(t, sent, "Main Channel")
	assert.Contains(t, sent, locales.GetMessage(localizer, "ChannelUnknown", nil, nil))
	f.channels.AssertNumberOfCalls(t, "TitlesByIDs", 1)
	f.channels.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// Guard against the menu labels drifting apart from the dispatch table.
func TestMenuLabelsDispatch(t *testing.T) {
	f := newFixture(t)
	localizer := locales.NewLocalizer("en")

	f.posts.On("ListPending", mock.Anything, testUserID).Return([]domain.Post{}, nil)

	var sent string
	f.expectReply(&sent)

	btn := locales.GetMessage(localizer, "BtnPendingPosts", nil, nil)
	err := f.handler.HandleMessage(context.Background(), f.bot, userMessage(btn))

	require.NoError(t, err)
	assert.True(t, strings.Contains(sent, "pending") || strings.Contains(sent, "Pending") || strings.Contains(sent, "queue"))
}
