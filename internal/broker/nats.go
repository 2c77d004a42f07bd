package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"mqguard/internal/ident"
	"mqguard/internal/resilience"
)

// natsClient subscribes to every pattern in desc.Topics over NATS. Grounded
// in the teacher's internal/messaging NATS client, trimmed to the
// subscribe-and-dispatch path this supervisor needs (no publish, no
// request-reply — the core never talks back to a broker).
type natsClient struct {
	desc    ident.Broker
	breaker *resilience.Breaker
	logger  *zap.Logger
}

func newNATSClient(desc ident.Broker, breaker *resilience.Breaker, logger *zap.Logger) *natsClient {
	return &natsClient{desc: desc, breaker: breaker, logger: logger}
}

func (c *natsClient) Name() string { return c.desc.Name }

func (c *natsClient) Run(ctx context.Context, handler Handler) error {
	url := fmt.Sprintf("nats://%s:%d", c.desc.Host, c.desc.Port)
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("nats disconnected", zap.String("broker", c.desc.Name), zap.Error(err))
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			c.logger.Info("nats reconnected", zap.String("broker", c.desc.Name))
		}),
	}
	if c.desc.HasCredentials() {
		opts = append(opts, nats.UserInfo(c.desc.User, c.desc.Password))
	}

	var conn *nats.Conn
	if err := c.breaker.Guard(func() error {
		var connectErr error
		conn, connectErr = nats.Connect(url, opts...)
		return connectErr
	}); err != nil {
		return fmt.Errorf("broker %q: nats connect: %w", c.desc.Name, err)
	}
	defer conn.Close()

	var subs []*nats.Subscription
	for _, subject := range c.desc.Topics {
		sub, err := conn.Subscribe(subject, c.dispatcher(handler))
		if err != nil {
			return fmt.Errorf("broker %q: nats subscribe %q: %w", c.desc.Name, subject, err)
		}
		subs = append(subs, sub)
	}

	<-ctx.Done()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}

func (c *natsClient) dispatcher(handler Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		handler(c.desc.Name, msg.Subject, msg.Data)
	}
}
