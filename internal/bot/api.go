package bot

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/net/proxy"
	"gopkg.in/telegram-bot-api.v4"
)

// ProxyConfig is an optional SOCKS5 proxy for reaching the Bot API.
type ProxyConfig struct {
	Server   string
	User     string
	Password string
}

// NewAPI authorizes the bot token, dialing through the SOCKS5 proxy when
// one is configured.
func NewAPI(token string, px ProxyConfig) (*tgbotapi.BotAPI, error) {
	if px.Server == "" {
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return nil, fmt.Errorf("connect to telegram: %w", err)
		}
		slog.Info("Telegram bot authorized", "bot", api.Self.UserName)
		return api, nil
	}

	var auth *proxy.Auth
	if px.User != "" {
		auth = &proxy.Auth{User: px.User, Password: px.Password}
	}
	dialer, err := proxy.SOCKS5("tcp", px.Server, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create socks5 dialer: %w", err)
	}
	transport := &http.Transport{}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.Dial = dialer.Dial //nolint:staticcheck
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, &http.Client{Transport: transport})
	if err != nil {
		return nil, fmt.Errorf("connect to telegram via proxy %s: %w", px.Server, err)
	}
	slog.Info("Telegram bot authorized", "bot", api.Self.UserName, "proxy", px.Server)
	return api, nil
}
