package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/client/services"
)

// Send delivers a message. "send bob hello" sends at once; with fewer
// arguments the recipient and text are prompted for.
func (a *App) Send(ctx context.Context, args []string) error {
	var recipient, text string
	var err error

	if len(args) > 0 {
		recipient = args[0]
	} else if recipient, err = getSimpleText(a.reader, "Recipient", a.out); err != nil {
		return err
	}

	if len(args) > 1 {
		text = strings.Join(args[1:], " ")
	} else if text, err = getMultiline(a.reader, "Message", a.out); err != nil {
		return err
	}

	if recipient == "" || text == "" {
		printlnFn("Nothing sent: recipient and text are required")
		return nil
	}

	if err := a.messenger.Send(ctx, recipient, text); err != nil {
		printlnFn("Send failed:", explain(err))
		return err
	}
	printlnFn("Sent to", recipient)
	return nil
}

// Get pulls new messages and prints them.
func (a *App) Get(ctx context.Context) error {
	msgs, err := a.messenger.Fetch(ctx)
	if len(msgs) == 0 && err == nil {
		printlnFn("No new messages")
	}
	printMessages(msgs)
	if err != nil {
		printlnFn("Get failed:", explain(err))
	}
	return err
}

// History prints the local inbox. An optional argument limits it to the
// newest N messages.
func (a *App) History(ctx context.Context, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			printlnFn("Usage: history [count]")
			return nil
		}
		limit = n
	}

	msgs, err := a.messenger.History(ctx, limit)
	if err != nil {
		printlnFn("History failed:", explain(err))
		return err
	}
	if len(msgs) == 0 {
		printlnFn("History is empty")
		return nil
	}
	printMessages(msgs)

	if limit > 0 {
		if total, err := a.messenger.HistorySize(ctx); err == nil && total > len(msgs) {
			printlnFn(fmt.Sprintf("Showing %d of %d messages", len(msgs), total))
		}
	}
	return nil
}

func printMessages(msgs []services.Received) {
	for _, m := range msgs {
		text := m.Text
		if m.Unreadable {
			text = "[cannot decrypt: different shared key?]"
		}
		printlnFn(fmt.Sprintf("[%s] %s: %s", m.SentAt.Local().Format(time.DateTime), m.Sender, text))
	}
}
