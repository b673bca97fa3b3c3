package notify

import "context"

type Provider interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channel string, message string) error {
	return nil
}
