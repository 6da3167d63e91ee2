package telegram

import "context"

// ChatNotifier posts plain text to one chat. It is a no-op while the bot
// token or chat id is unset.
type ChatNotifier struct {
	Client *Client
	ChatID int64
}

func (n ChatNotifier) Notify(ctx context.Context, text string) error {
	if n.Client == nil || !n.Client.Enabled() || n.ChatID == 0 {
		return nil
	}
	return n.Client.SendMessage(ctx, n.ChatID, text)
}
