package bot

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/history"
)

// Logger defines the logging interface used by Bot
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	Info(msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	Warn(msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// DiscordSession defines the Discord session interface used by Bot
type DiscordSession interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	// GetUserID returns the bot's user ID
	GetUserID() string
}

// Converter turns mixed Hanja text into Hangul
type Converter interface {
	Convert(input string) hanja.Result
}

// HistoryStore saves conversions and feedback. Bot works without one.
type HistoryStore interface {
	Save(ctx context.Context, rec history.Record) (db.Conversion, error)
	CreateFeedback(ctx context.Context, arg db.CreateFeedbackParams) (db.Feedback, error)
}

// slogAdapter wraps *slog.Logger to return our Logger interface from With()
type slogAdapter struct {
	*slog.Logger
}

func (l *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{Logger: l.Logger.With(args...)}
}

// NewLogger wraps a *slog.Logger to implement the Logger interface
func NewLogger(log *slog.Logger) Logger {
	return &slogAdapter{Logger: log}
}

// discordSessionAdapter wraps *discordgo.Session to implement DiscordSession
type discordSessionAdapter struct {
	*discordgo.Session
}

func (s *discordSessionAdapter) GetUserID() string {
	return s.State.User.ID
}

// NewDiscordSession wraps a *discordgo.Session to implement the DiscordSession interface
func NewDiscordSession(session *discordgo.Session) DiscordSession {
	return &discordSessionAdapter{Session: session}
}

// historyStore writes bot conversions and feedback straight to the repository
type historyStore struct {
	repo db.Repository
}

func (h *historyStore) Save(ctx context.Context, rec history.Record) (db.Conversion, error) {
	return history.Save(ctx, h.repo, rec)
}

func (h *historyStore) CreateFeedback(ctx context.Context, arg db.CreateFeedbackParams) (db.Feedback, error) {
	return h.repo.CreateFeedback(ctx, arg)
}

// NewHistoryStore stores bot conversions and feedback in repo. Replies wait on
// the stored id, so nothing is queued.
func NewHistoryStore(repo db.Repository) HistoryStore {
	return &historyStore{repo: repo}
}
