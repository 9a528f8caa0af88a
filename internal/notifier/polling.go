package notifier

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// pollTimeout is the long-poll wait passed to getUpdates.
const pollTimeout = 30

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type getUpdatesParams struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// StartPolling long-polls getUpdates and answers commands until ctx is
// cancelled. Messages from chats other than ChatID are ignored.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: (pollTimeout + 5) * time.Second, Transport: t.Client.Transport}
	offset := 0
	for ctx.Err() == nil {
		var updates []telegramUpdate
		params := getUpdatesParams{Offset: offset, Timeout: pollTimeout, AllowedUpdates: []string{"message"}}
		if err := t.call(ctx, client, "getUpdates", params, &updates); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] polling: %v", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}
		offset = t.dispatch(ctx, updates, handler, offset)
	}
	log.Println("[INFO] Telegram polling stopped")
}

// dispatch answers the commands in updates and returns the next offset.
func (t *TelegramNotifier) dispatch(ctx context.Context, updates []telegramUpdate, handler CommandHandler, offset int) int {
	for _, u := range updates {
		offset = u.UpdateID + 1
		m := u.Message
		if m == nil || strings.TrimSpace(m.Text) == "" {
			continue
		}
		if strconv.FormatInt(m.Chat.ID, 10) != t.ChatID {
			log.Printf("[WARN] ignoring message from chat %d", m.Chat.ID)
			continue
		}
		text := strings.TrimSpace(m.Text)
		log.Printf("[INFO] received command: %s", text)
		if reply := handler(ctx, text); reply != "" {
			if err := t.Send(ctx, reply); err != nil {
				log.Printf("[ERROR] send reply: %v", err)
			}
		}
	}
	return offset
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
