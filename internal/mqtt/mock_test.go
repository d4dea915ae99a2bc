package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/Choreo/internal/orchestrator"
)

// MockMQTTClient is a mock transport for testing subscriptions and publishes.
type MockMQTTClient struct {
	mu            sync.Mutex
	subscriptions map[string]paho.MessageHandler
	subscribes    int
	published     []publishedMessage
	connected     bool
	publishErr    error
}

type publishedMessage struct {
	topic   string
	payload []byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		subscriptions: make(map[string]paho.MessageHandler),
		connected:     true,
	}
}

func (m *MockMQTTClient) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	m.subscribes++
	return nil
}

func (m *MockMQTTClient) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) Published() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMessage{}, m.published...)
}

func (m *MockMQTTClient) GetSubscriptions() map[string]paho.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]paho.MessageHandler)
	for k, v := range m.subscriptions {
		result[k] = v
	}
	return result
}

// SimulateMessage delivers payload to the handler whose filter matches
// topic. Only a trailing single-level wildcard is supported.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) bool {
	m.mu.Lock()
	var handler paho.MessageHandler
	for filter, h := range m.subscriptions {
		if matches(filter, topic) {
			handler = h
			break
		}
	}
	m.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(nil, &mockMessage{topic: topic, payload: payload})
	return true
}

func matches(filter, topic string) bool {
	if filter == topic {
		return true
	}
	n := len(filter)
	if n > 0 && filter[n-1] == '+' {
		prefix := filter[:n-1]
		if len(topic) > len(prefix) && topic[:len(prefix)] == prefix {
			for _, c := range topic[len(prefix):] {
				if c == '/' {
					return false
				}
			}
			return true
		}
	}
	return false
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

// recordingPoster collects posted commands instead of running them.
type recordingPoster struct {
	mu   sync.Mutex
	cmds []func(*orchestrator.Director)
}

func (p *recordingPoster) Post(cmd func(*orchestrator.Director)) {
	p.mu.Lock()
	p.cmds = append(p.cmds, cmd)
	p.mu.Unlock()
}

func (p *recordingPoster) runAll(d *orchestrator.Director) int {
	p.mu.Lock()
	cmds := p.cmds
	p.cmds = nil
	p.mu.Unlock()
	for _, cmd := range cmds {
		cmd(d)
	}
	return len(cmds)
}
