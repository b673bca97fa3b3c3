package notify

import (
	"github.com/smallsites/sitebill/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("notify",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.Notify.SlackWebhookURL == "" {
		return &NoOpProvider{}
	}
	return NewSlack(SlackConfig{
		WebhookURL: cfg.Notify.SlackWebhookURL,
		Channel:    cfg.Notify.Channel,
	})
}
