package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/history"
	"github.com/jusunglee/hanjahangul/internal/metrics"
)

const (
	commandHangul        = "hangul"
	commandConvertMenu   = "Convert to Hangul"
	fallbackMessage      = hanja.FallbackMessage
	feedbackButtonPrefix = "feedback_fix:"
	feedbackModalPrefix  = "feedback_modal:"
	correctionInputID    = "correction_text"
	maxMessageRunes      = 2000
	maxFeedbackRunes     = 500
	surfaceBot           = "bot"
)

type Config struct {
	GuildID       string
	MaxInputRunes int
}

type Bot struct {
	log     Logger
	session DiscordSession
	conv    Converter
	store   HistoryStore
	limiter *RateLimiter
	config  Config
}

// New builds a bot. store may be nil.
func New(log Logger, session DiscordSession, conv Converter, store HistoryStore, config Config) *Bot {
	if config.MaxInputRunes <= 0 {
		config.MaxInputRunes = maxMessageRunes
	}
	return &Bot{
		log:     log,
		session: session,
		conv:    conv,
		store:   store,
		limiter: NewRateLimiter(rateLimitMaxCommands, rateLimitWindow),
		config:  config,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.InfoContext(ctx, "connected to Discord", "username", r.User.Username)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening Discord connection: %w", err)
	}

	if err := b.registerCommands(ctx); err != nil {
		b.session.Close()
		return fmt.Errorf("registering commands: %w", err)
	}

	b.log.InfoContext(ctx, "bot is running, press Ctrl+C to stop")
	<-ctx.Done()
	b.log.Info("shutdown signal received")
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing Discord connection: %w", err)
	}
	b.log.Info("shut down complete")
	return nil
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        commandHangul,
		Description: "Convert Hanja in the text to Hangul",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "Text containing Hanja, e.g. 大韓民國",
				Required:    true,
				MaxLength:   maxMessageRunes,
			},
		},
	},
	{
		Name: commandConvertMenu,
		Type: discordgo.MessageApplicationCommand,
	},
}

func (b *Bot) registerCommands(ctx context.Context) error {
	guildID := b.config.GuildID
	if guildID != "" {
		b.log.InfoContext(ctx, "registering commands to guild", "guild_id", guildID)
		_, err := b.session.ApplicationCommandBulkOverwrite(b.session.GetUserID(), "", []*discordgo.ApplicationCommand{})
		if err != nil {
			b.log.WarnContext(ctx, "failed to clear global commands", "error", err)
		}
	} else {
		b.log.InfoContext(ctx, "registering commands globally (may take up to 1 hour to propagate)")
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.GetUserID(), guildID, commands)
	if err != nil {
		return fmt.Errorf("bulk overwrite commands: %w", err)
	}
	b.log.InfoContext(ctx, "registered commands", "count", len(commands))
	return nil
}

type handlerResult struct {
	Response     string
	ConversionID int64
	Err          error
}

func (b *Bot) handleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		b.handleModalSubmit(ctx, i)
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	cmd := data.Name

	var result handlerResult
	switch cmd {
	case commandHangul:
		result = b.handleConvert(ctx, i, getOption(data.Options, "text"))
	case commandConvertMenu:
		result = b.handleConvert(ctx, i, targetMessageContent(data))
	default:
		return
	}

	b.respond(i, result)

	label := "ok"
	switch {
	case result.Err == nil:
	case isUserError(result.Err):
		label = "user_error"
		b.log.WarnContext(ctx, "user error", "command", cmd, "error", result.Err, "channel_id", i.ChannelID)
	default:
		label = "error"
		b.log.ErrorContext(ctx, "command failed", "command", cmd, "error", result.Err, "channel_id", i.ChannelID)
	}
	metrics.BotCommandsTotal.WithLabelValues(cmd, label).Inc()
}

func (b *Bot) handleConvert(ctx context.Context, i *discordgo.InteractionCreate, text string) handlerResult {
	if ok, wait := b.limiter.Allow(interactionUserID(i)); !ok {
		err := newUserError(fmt.Errorf("rate limited for %s", wait.Round(time.Second)))
		return handlerResult{
			Response: fmt.Sprintf("Too many requests. Try again in %d seconds.", int(wait.Round(time.Second).Seconds())),
			Err:      err,
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return handlerResult{Response: "There is no text to convert.", Err: newUserError(errors.New("empty input"))}
	}
	if utf8.RuneCountInString(text) > b.config.MaxInputRunes {
		return handlerResult{
			Response: fmt.Sprintf("Text must be %d characters or fewer.", b.config.MaxInputRunes),
			Err:      newUserError(errors.New("input too long")),
		}
	}

	result := b.conv.Convert(text)
	metrics.RecordConversion(surfaceBot, utf8.RuneCountInString(text), result.Converted())
	res := handlerResult{Response: truncateRunes(result.Or(fallbackMessage), maxMessageRunes)}

	if b.store != nil {
		c, err := b.store.Save(ctx, history.Record{
			Input:    text,
			Result:   result,
			Surface:  surfaceBot,
			ClientIP: "discord:" + interactionUserID(i),
		})
		if err != nil {
			// the user still gets the conversion
			b.log.WarnContext(ctx, "recording conversion", "error", err)
		} else {
			res.ConversionID = c.ID
		}
	}
	return res
}

func (b *Bot) respond(i *discordgo.InteractionCreate, result handlerResult) {
	data := &discordgo.InteractionResponseData{Content: result.Response}
	if isUserError(result.Err) {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if result.Err == nil && result.ConversionID != 0 {
		data.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Suggest Fix",
						CustomID: feedbackButtonPrefix + strconv.FormatInt(result.ConversionID, 10),
						Style:    discordgo.SecondaryButton,
					},
				},
			},
		}
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.log.Error("responding to interaction", "error", err)
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	idStr, ok := strings.CutPrefix(customID, feedbackButtonPrefix)
	if !ok {
		return
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: feedbackModalPrefix + idStr,
			Title:    "Suggest a Correction",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    correctionInputID,
							Label:       "What should the Hangul be?",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "e.g. 李 at the start of a word reads 이",
							Required:    true,
							MaxLength:   maxFeedbackRunes,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.log.ErrorContext(ctx, "opening feedback modal", "error", err)
	}
}

func (b *Bot) handleModalSubmit(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	idStr, ok := strings.CutPrefix(data.CustomID, feedbackModalPrefix)
	if !ok {
		return
	}
	conversionID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	var correction string
	for _, row := range data.Components {
		if actionsRow, ok := row.(*discordgo.ActionsRow); ok {
			for _, comp := range actionsRow.Components {
				if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == correctionInputID {
					correction = strings.TrimSpace(input.Value)
				}
			}
		}
	}

	reply := "Thanks! Your correction has been recorded."
	switch {
	case b.store == nil:
		reply = "Corrections are not being collected right now."
	case correction == "":
		reply = "The correction was empty."
	default:
		_, err := b.store.CreateFeedback(ctx, db.CreateFeedbackParams{
			ConversionID: conversionID,
			ClientHash:   history.HashClient("discord:" + interactionUserID(i)),
			FeedbackText: truncateRunes(correction, maxFeedbackRunes),
		})
		if err != nil {
			b.log.ErrorContext(ctx, "failed to store correction feedback", "error", err, "conversion_id", conversionID)
			reply = "Sorry, the correction could not be saved."
		}
	}

	err = b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.ErrorContext(ctx, "responding to modal", "error", err)
	}
}

type userError struct {
	Err error
}

func (e *userError) Error() string {
	return e.Err.Error()
}

func (e *userError) Unwrap() error {
	return e.Err
}

func newUserError(err error) *userError {
	return &userError{Err: err}
}

func isUserError(err error) bool {
	_, ok := errors.AsType[*userError](err)
	return ok
}

func getOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func targetMessageContent(data discordgo.ApplicationCommandInteractionData) string {
	if data.Resolved == nil {
		return ""
	}
	if msg, ok := data.Resolved.Messages[data.TargetID]; ok && msg != nil {
		return msg.Content
	}
	return ""
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
