package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 100

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	BufferSize int

	// ConnectTimeout bounds the initial connection attempt. The client keeps
	// retrying in the background after it expires.
	ConnectTimeout time.Duration

	Log *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	log    *slog.Logger
	force  chan struct{}

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. On every
// connection it announces Home Assistant discovery configs, marks both
// devices online, subscribes to the force check button and replays
// buffered messages.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	if opts.ClientID == "" {
		opts.ClientID = "boiler-vision"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "mqtt", "broker", opts.Broker)

	p := &RealPublisher{
		log:    log,
		force:  make(chan struct{}, 1),
		buffer: newRingBuffer(opts.BufferSize),
	}

	popts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicBoilerAvailability, PayloadOffline, 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			// Publishing blocks on acks, which the handler goroutine delivers.
			go p.onConnect(c)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("connection lost", "err", err)
		})
	if opts.Username != "" {
		popts.SetUsername(opts.Username)
		popts.SetPassword(opts.Password)
	}

	p.client = paho.NewClient(popts)
	token := p.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		log.Warn("broker not reachable yet, retrying in background")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Info("connected")

	msgs, err := DiscoveryMessages()
	if err != nil {
		p.log.Error("format discovery configs", "err", err)
	}
	msgs = append(msgs, AvailabilityMessages(PayloadOnline)...)
	for _, m := range msgs {
		if err := p.send(m); err != nil {
			p.log.Warn("announce failed", "topic", m.Topic, "err", err)
		}
	}

	token := c.Subscribe(TopicForceCheck, 1, func(_ paho.Client, _ paho.Message) {
		p.log.Info("force check requested")
		select {
		case p.force <- struct{}{}:
		default:
		}
	})
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		p.log.Warn("subscribe failed", "topic", TopicForceCheck, "err", token.Error())
	}

	p.mu.Lock()
	pending := p.buffer.drainAll()
	p.mu.Unlock()
	if len(pending) > 0 {
		p.log.Info("replaying buffered messages", "count", len(pending))
	}
	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.log.Warn("replay failed", "topic", m.Topic, "err", err)
		}
	}
}

// ForceCheck delivers a value whenever the force check button is pressed.
// Presses arriving while one is pending are coalesced.
func (p *RealPublisher) ForceCheck() <-chan struct{} {
	return p.force
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// PublishState sends the entity states and the JSON document for a cycle.
func (p *RealPublisher) PublishState(update StateUpdate) error {
	msgs, err := StateMessages(update)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publishAll(msgs)
}

// PublishError sets the error entity.
func (p *RealPublisher) PublishError(failed bool) error {
	return p.publish(ErrorMessage(failed))
}

// PublishForceCheck publishes the time a forced check completed.
func (p *RealPublisher) PublishForceCheck(at time.Time) error {
	return p.publish(ForceCheckMessage(at))
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	m, err := SystemMessage(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(m)
}

func (p *RealPublisher) publishAll(msgs []Message) error {
	var errs []error
	for _, m := range msgs {
		if err := p.publish(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// publish sends m, or buffers it for replay while disconnected.
func (p *RealPublisher) publish(m Message) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		firstDrop := p.buffer.push(m)
		n := p.buffer.len()
		p.mu.Unlock()
		if firstDrop {
			p.log.Warn("offline buffer full, dropping oldest", "capacity", n)
		}
		p.log.Debug("buffered while disconnected", "topic", m.Topic, "buffered", n)
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m Message) error {
	token := p.client.Publish(m.Topic, m.QoS, m.Retained, m.Payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.Topic, err)
	}
	return nil
}

// Close marks both devices offline and disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client.IsConnectionOpen() {
		for _, m := range AvailabilityMessages(PayloadOffline) {
			if err := p.send(m); err != nil {
				p.log.Warn("publish offline availability", "err", err)
			}
		}
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
