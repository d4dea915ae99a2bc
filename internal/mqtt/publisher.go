package mqtt

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/state"
)

// StateMessage is the JSON body published on <prefix>/state/<key>.
type StateMessage struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Publisher is a store listener that tells collaborators about state
// changes. With a registry it only publishes keys some registered
// collaborator asked for.
type Publisher struct {
	transport Transport
	topics    Topics
	registry  *CollaboratorRegistry
	logger    *log.Logger
	failed    bool
}

// NewPublisher creates a publisher. registry may be nil to publish every
// key it is attached to.
func NewPublisher(transport Transport, topics Topics, registry *CollaboratorRegistry) *Publisher {
	return &Publisher{
		transport: transport,
		topics:    topics,
		registry:  registry,
		logger:    log.Default().WithPrefix("mqtt"),
	}
}

// Attach subscribes the publisher to keys, or to the whole vocabulary when
// none are given. Attach before the director starts so phase snapshots
// include the subscription.
func (p *Publisher) Attach(s *state.Store, keys ...state.Key) {
	if len(keys) == 0 {
		keys = state.Keys()
	}
	for _, k := range keys {
		if !s.Subscribed(p, k) {
			s.Subscribe(p, k)
		}
	}
}

func (p *Publisher) Receive(key state.Key, v state.Value) {
	if p.registry != nil && !p.registry.Wants(key) {
		return
	}
	if !p.transport.IsConnected() {
		return
	}

	body, err := json.Marshal(StateMessage{Key: key.String(), Value: state.Export(v)})
	if err != nil {
		p.logger.Warn("cannot encode state", "key", key, "err", err)
		return
	}

	if err := p.transport.Publish(p.topics.State(key), body); err != nil {
		if !p.failed {
			p.logger.Error("publish failed", "key", key, "err", err)
		}
		p.failed = true
		return
	}
	p.failed = false
}
