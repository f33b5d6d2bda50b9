// Package eventstreamutils selects an eventstream publisher by provider name.
package eventstreamutils

import (
	"fmt"

	"github.com/gentaxai/gentax/pkg/eventstream"
	"github.com/gentaxai/gentax/pkg/eventstream/kafka"
	"github.com/gentaxai/gentax/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
}

// NewPublisher returns the publisher for o.ProviderType. An empty provider
// disables publishing.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{Brokers: o.Brokers, Topic: o.Topic})
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
