package port

import "context"

// Publisher sends an encoded lifecycle notice to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
