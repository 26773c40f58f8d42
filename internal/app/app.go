package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/maaaruch/memory-tribunal/internal/domain"
	"github.com/maaaruch/memory-tribunal/internal/session"
)

const barWidth = 12

type Voter interface {
	CastVote(ctx context.Context, option string) (domain.Tally, bool)
	Tally() domain.Tally
}

// App lets a Telegram chat vote and watch the results board.
type App struct {
	bot    *tgbotapi.BotAPI
	votes  Voter
	boards *session.Manager
}

func New(bot *tgbotapi.BotAPI, votes Voter) *App {
	return &App{
		bot:    bot,
		votes:  votes,
		boards: session.NewManager(),
	}
}

func (a *App) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				a.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				a.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// ---------- Updates ----------

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		text := "Memory Tribunal.\n\n" +
			"Should the memory be sealed? Press a button below to vote.\n" +
			"/results – post the live results board\n" +
			"/vote yes|no – vote with a command"
		a.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text))
		a.postBoard(msg.Chat.ID)

	case "help":
		a.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "See /start 🙂"))

	case "results":
		a.postBoard(msg.Chat.ID)

	case "vote":
		option := strings.TrimSpace(msg.CommandArguments())
		if _, ok := a.votes.CastVote(ctx, option); !ok {
			a.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Usage: /vote yes or /vote no"))
			return
		}
		a.refreshBoard(msg.Chat.ID)

	default:
		a.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Unknown command. Try /start"))
	}
}

func (a *App) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	option, ok := parseVoteData(cq.Data)
	if !ok || cq.Message == nil {
		_, _ = a.bot.Request(tgbotapi.NewCallback(cq.ID, ""))
		return
	}

	if _, ok := a.votes.CastVote(ctx, option); !ok {
		_, _ = a.bot.Request(tgbotapi.NewCallback(cq.ID, ""))
		return
	}
	_, _ = a.bot.Request(tgbotapi.NewCallback(cq.ID, "Vote counted"))

	chatID := cq.Message.Chat.ID
	if a.boards.Get(chatID) == nil {
		// button pressed on a board from before a restart
		a.boards.Set(chatID, &session.Board{MessageID: cq.Message.MessageID, Text: cq.Message.Text})
	}
	a.refreshBoard(chatID)
}

// ---------- Board ----------

func (a *App) postBoard(chatID int64) {
	text := formatResults(a.votes.Tally())
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = voteKeyboard()

	sent, err := a.bot.Send(m)
	if err != nil {
		log.Println("post board:", err)
		return
	}
	a.boards.Set(chatID, &session.Board{MessageID: sent.MessageID, Text: text})
}

// refreshBoard edits the chat's board in place. Telegram rejects edits that
// change nothing, so identical text is skipped.
func (a *App) refreshBoard(chatID int64) {
	board := a.boards.Get(chatID)
	if board == nil {
		a.postBoard(chatID)
		return
	}

	text := formatResults(a.votes.Tally())
	if text == board.Text {
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, board.MessageID, text, voteKeyboard())
	if _, err := a.bot.Send(edit); err != nil {
		log.Println("refresh board:", err)
		return
	}
	a.boards.Set(chatID, &session.Board{MessageID: board.MessageID, Text: text})
}

func voteKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes", "vote:"+string(domain.OptionYes)),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", "vote:"+string(domain.OptionNo)),
		),
	)
}

func parseVoteData(data string) (string, bool) {
	option, ok := strings.CutPrefix(data, "vote:")
	if !ok {
		return "", false
	}
	if _, valid := domain.ParseOption(option); !valid {
		return "", false
	}
	return option, true
}

func formatResults(t domain.Tally) string {
	var sb strings.Builder
	sb.WriteString("📊 Live Vote Results\n\n")
	sb.WriteString(fmt.Sprintf("Yes %s %d\n", bar(t.Yes, max(t.Yes, t.No)), t.Yes))
	sb.WriteString(fmt.Sprintf("No  %s %d\n", bar(t.No, max(t.Yes, t.No)), t.No))
	sb.WriteString(fmt.Sprintf("\nTotal: %d", t.Total()))
	return sb.String()
}

// bar draws n scaled so that top fills barWidth cells.
func bar(n, top int64) string {
	filled := 0
	if top > 0 {
		filled = int((n*barWidth + top/2) / top)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
