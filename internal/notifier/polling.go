package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	pollTimeout    = 30 * time.Second
	pollRetryDelay = 5 * time.Second
)

// CommandHandler runs an operator command and returns the reply.
// An empty reply sends nothing.
type CommandHandler func(command string) string

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	Text string        `json:"text"`
	Chat telegramChat  `json:"chat"`
	From *telegramUser `json:"from"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramUser struct {
	ID int64 `json:"id"`
}

// StartPolling long-polls the bot for operator commands until ctx is
// cancelled. Only messages from the configured chat reach the handler, and
// replies go back to the chat the command came from.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: pollTimeout + 5*time.Second, Transport: t.Client.Transport}
	var offset int64

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] Telegram polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[INFO] Telegram polling stopped")
				return
			}
			log.Printf("[WARN] %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message != nil {
				t.dispatch(ctx, u.Message, handler)
			}
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int64) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
		t.APIBase, t.BotToken, offset, int(pollTimeout/time.Second))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create polling request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("polling rejected: %s", result.Description)
	}
	return result.Result, nil
}

func (t *TelegramNotifier) dispatch(ctx context.Context, msg *telegramMessage, handler CommandHandler) {
	text := commandText(msg.Text)
	if text == "" {
		return
	}
	if !t.authorized(msg) {
		log.Printf("[WARN] ignored %q from chat %d user %d", text, msg.Chat.ID, senderID(msg))
		return
	}

	log.Printf("[INFO] command %s from user %d", text, senderID(msg))
	reply := handler(text)
	if reply == "" {
		return
	}
	if err := t.sendToWithRetry(ctx, strconv.FormatInt(msg.Chat.ID, 10), reply, 1); err != nil {
		log.Printf("[ERROR] send reply: %v", err)
	}
}

// authorized admits the configured chat and, when AllowedUsers is set, only
// those senders within it.
func (t *TelegramNotifier) authorized(msg *telegramMessage) bool {
	if strconv.FormatInt(msg.Chat.ID, 10) != strings.TrimSpace(t.ChatID) {
		return false
	}
	if len(t.AllowedUsers) == 0 {
		return true
	}
	return msg.From != nil && slices.Contains(t.AllowedUsers, msg.From.ID)
}

// commandText trims the message and drops a "@botname" suffix from the
// command word, which Telegram appends in group chats.
func commandText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	word, rest, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(word, '@'); at > 0 {
		word = word[:at]
	}
	if rest == "" {
		return word
	}
	return word + " " + rest
}

func senderID(msg *telegramMessage) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
