package mqtt

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBrokerURL is used when no broker is configured.
const DefaultBrokerURL = "tcp://localhost:1883"

// Transport is the subset of the client the bridge and publisher use.
type Transport interface {
	Subscribe(topic string, handler paho.MessageHandler) error
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// Client wraps the Paho MQTT client.
type Client struct {
	client    paho.Client
	brokerURL string
	logger    *log.Logger
	mu        sync.Mutex
}

var _ Transport = (*Client)(nil)

// NewClient creates a new MQTT client but does not connect. onConnect runs
// after every (re)connect, which is where subscriptions are restored.
func NewClient(brokerURL, clientID string, onConnect func()) *Client {
	if brokerURL == "" {
		brokerURL = DefaultBrokerURL
	}
	c := &Client{
		brokerURL: brokerURL,
		logger:    log.Default().WithPrefix("mqtt"),
	}
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn("connection lost", "broker", brokerURL, "err", err)
		})
	if onConnect != nil {
		opts.SetOnConnectHandler(func(paho.Client) {
			// Subscribe blocks on the token; never wait inside paho's callback.
			go onConnect()
		})
	}

	c.client = paho.NewClient(opts)
	return c
}

// BrokerURL returns the broker this client dials.
func (c *Client) BrokerURL() string { return c.brokerURL }

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return &ConnectTimeoutError{}
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(10 * time.Second) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Publish sends payload at QoS 0 without waiting for delivery, so it is safe
// to call from the tick goroutine. Only errors already known are returned.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// Start connects, logging rather than failing; auto-reconnect keeps trying
// in the background. Returns true if connected now.
func (c *Client) Start() bool {
	if err := c.Connect(); err != nil {
		c.logger.Error("failed to connect", "broker", c.brokerURL, "err", err)
		return false
	}
	c.logger.Info("connected", "broker", c.brokerURL)
	return true
}
