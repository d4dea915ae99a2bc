package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/Choreo/internal/events"
	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "choreo"

// Poster queues work onto the tick goroutine.
type Poster interface {
	Post(cmd func(*orchestrator.Director))
}

// Topics derives every topic from a prefix:
//
//	<prefix>/inform/<key>     collaborator -> engine, signal
//	<prefix>/set/<key>        collaborator -> engine, durable value
//	<prefix>/register         collaborator -> engine, registration
//	<prefix>/heartbeat/<id>   collaborator -> engine, liveness
//	<prefix>/state/<key>      engine -> collaborators
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

func (t Topics) Inform() string { return t.prefix() + "/inform/+" }
func (t Topics) Set() string { return t.prefix() + "/set/+" }
func (t Topics) Register() string { return t.prefix() + "/register" }
func (t Topics) Heartbeat() string { return t.prefix() + "/heartbeat/+" }
func (t Topics) State(key state.Key) string { return t.prefix() + "/state/" + key.String() }
func (t Topics) InformKey(key state.Key) string { return t.prefix() + "/inform/" + key.String() }
func (t Topics) SetKey(key state.Key) string { return t.prefix() + "/set/" + key.String() }

// Bridge turns collaborator messages into store writes on the tick
// goroutine. It ensures idempotent subscription handling across reconnects.
type Bridge struct {
	mu         sync.RWMutex
	transport  Transport
	poster     Poster
	monitor    *Monitor
	topics     Topics
	subscribed map[string]bool // topic -> subscribed
}

// NewBridge creates a bridge. monitor may be nil, in which case
// registration and heartbeat topics are not subscribed.
func NewBridge(transport Transport, poster Poster, monitor *Monitor, topics Topics) *Bridge {
	return &Bridge{
		transport:  transport,
		poster:     poster,
		monitor:    monitor,
		topics:     topics,
		subscribed: make(map[string]bool),
	}
}

// SubscribeAll subscribes every bridge topic not yet subscribed. Safe to
// call after each reconnect.
func (b *Bridge) SubscribeAll() error {
	handlers := map[string]paho.MessageHandler{
		b.topics.Inform(): b.handleWrite(false),
		b.topics.Set():    b.handleWrite(true),
	}
	if b.monitor != nil {
		handlers[b.topics.Register()] = b.handleRegister
		handlers[b.topics.Heartbeat()] = b.handleHeartbeat
	}

	var firstErr error
	for topic, handler := range handlers {
		if err := b.subscribe(topic, handler); err != nil {
			events.Emit("error", "collaborator.error", "failed to subscribe", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *Bridge) subscribe(topic string, handler paho.MessageHandler) error {
	b.mu.Lock()
	if b.subscribed[topic] {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	if err := b.transport.Subscribe(topic, handler); err != nil {
		return err
	}

	b.mu.Lock()
	b.subscribed[topic] = true
	b.mu.Unlock()
	return nil
}

// handleWrite decodes <prefix>/{inform,set}/<key> messages. The payload is
// a JSON value converted per the key's kind; an empty inform payload sends
// the plain signal.
func (b *Bridge) handleWrite(persist bool) paho.MessageHandler {
	op := "inform"
	if persist {
		op = "set"
	}
	return func(_ paho.Client, msg paho.Message) {
		cmd, key, err := decodeWrite(msg.Topic(), msg.Payload(), persist)
		if err != nil {
			events.Emit("error", "collaborator.error", "rejected message", map[string]interface{}{
				"topic": msg.Topic(),
				"op":    op,
				"error": err.Error(),
			})
			return
		}
		b.poster.Post(cmd)
		events.Emit("info", "collaborator.input", "", map[string]interface{}{
			"key": key.String(),
			"op":  op,
		})
	}
}

func decodeWrite(topic string, payload []byte, persist bool) (func(*orchestrator.Director), state.Key, error) {
	name := topic[strings.LastIndex(topic, "/")+1:]
	key, err := state.ParseKey(name)
	if err != nil {
		return nil, 0, err
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		if persist {
			return nil, key, fmt.Errorf("set %s: empty payload", key)
		}
		return func(d *orchestrator.Director) { d.Store().Inform(key) }, key, nil
	}

	var raw interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, key, fmt.Errorf("invalid JSON: %w", err)
	}
	v, err := state.ParseValue(key.Kind(), raw)
	if err != nil {
		return nil, key, fmt.Errorf("%s: %w", key, err)
	}

	if persist {
		return func(d *orchestrator.Director) { d.Store().Set(key, v) }, key, nil
	}
	return func(d *orchestrator.Director) { d.Store().InformValue(key, v) }, key, nil
}

func (b *Bridge) handleRegister(_ paho.Client, msg paho.Message) {
	payload, err := ParseRegistration(msg.Payload())
	if err != nil {
		events.Emit("error", "collaborator.rejected", "invalid registration", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	b.monitor.HandleRegistration(payload)
}

func (b *Bridge) handleHeartbeat(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	b.monitor.Heartbeat(topic[strings.LastIndex(topic, "/")+1:])
}

// IsSubscribed returns true if the topic is already subscribed.
func (b *Bridge) IsSubscribed(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribed[topic]
}

// SubscribedTopics returns a list of all subscribed topics.
func (b *Bridge) SubscribedTopics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.subscribed))
	for topic := range b.subscribed {
		topics = append(topics, topic)
	}
	return topics
}

// ClearSubscriptions clears the subscription tracking.
// Call this on disconnect to allow re-subscription on reconnect.
func (b *Bridge) ClearSubscriptions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = make(map[string]bool)
}
