package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pocket-change/internal/domain"
	"pocket-change/internal/service"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"
)

func supportedList() string {
	codes := domain.SupportedCodes()
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = string(code)
	}
	return strings.Join(parts, ", ")
}

func StartTelegramBot(ratesService *service.RatesService) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/rate", func(c tele.Context) error {
		args := c.Args()
		if len(args) < 2 {
			return c.Send(fmt.Sprintf("Usage: /rate BTC USD\nSupported: %s", supportedList()))
		}
		from, err := domain.ParseCode(args[0])
		if err != nil {
			return c.Send(fmt.Sprintf("Unknown currency: %s\nSupported: %s", args[0], supportedList()))
		}
		to, err := domain.ParseCode(args[1])
		if err != nil {
			return c.Send(fmt.Sprintf("Unknown currency: %s\nSupported: %s", args[1], supportedList()))
		}
		rate, path, err := ratesService.ResolveRate(context.Background(), from, to)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching rate for %s/%s: %v", from, to, err))
		}
		msg := fmt.Sprintf("1 %s = %s %s", from, rate.String(), to)
		if path != domain.PathDirect {
			msg += fmt.Sprintf(" (%s)", path)
		}
		return c.Send(msg)
	})

	b.Handle("/convert", func(c tele.Context) error {
		args := c.Args()
		if len(args) < 3 {
			return c.Send(fmt.Sprintf("Usage: /convert 0.5 BTC USD\nSupported: %s", supportedList()))
		}
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return c.Send(fmt.Sprintf("Invalid amount: %s", args[0]))
		}
		from, err := domain.ParseCode(args[1])
		if err != nil {
			return c.Send(fmt.Sprintf("Unknown currency: %s\nSupported: %s", args[1], supportedList()))
		}
		to, err := domain.ParseCode(args[2])
		if err != nil {
			return c.Send(fmt.Sprintf("Unknown currency: %s\nSupported: %s", args[2], supportedList()))
		}
		conv, err := ratesService.Convert(context.Background(), amount, from, to)
		if err != nil {
			return c.Send(fmt.Sprintf("Error converting %s %s to %s: %v", amount, from, to, err))
		}
		return c.Send(fmt.Sprintf("%s %s = %s %s", conv.Amount, conv.From, conv.Result, conv.To))
	})

	log.Println("Telegram bot started")
	go b.Start()
}
