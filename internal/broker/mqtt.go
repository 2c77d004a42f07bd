package broker

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"mqguard/internal/ident"
	"mqguard/internal/resilience"
)

// mqttClient subscribes to every pattern in desc.Topics over MQTT. It
// mirrors the teacher's internal/messaging MQTT client: a
// *mqtt.ClientOptions built from the descriptor, connection-lost and
// on-connect callbacks feeding a circuit breaker, and per-message dispatch
// into the supplied Handler.
type mqttClient struct {
	desc    ident.Broker
	breaker *resilience.Breaker
	logger  *zap.Logger
}

func newMQTTClient(desc ident.Broker, breaker *resilience.Breaker, logger *zap.Logger) *mqttClient {
	return &mqttClient{desc: desc, breaker: breaker, logger: logger}
}

func (c *mqttClient) Name() string { return c.desc.Name }

func (c *mqttClient) Run(ctx context.Context, handler Handler) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.desc.Host, c.desc.Port))
	opts.SetClientID(fmt.Sprintf("mqguard-%s", c.desc.Name))
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if c.desc.HasCredentials() {
		opts.SetUsername(c.desc.User)
		opts.SetPassword(c.desc.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("mqtt connection lost", zap.String("broker", c.desc.Name), zap.Error(err))
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logger.Info("mqtt connected", zap.String("broker", c.desc.Name))
		for _, topic := range c.desc.Topics {
			if token := client.Subscribe(topic, 0, c.dispatcher(handler)); token.Wait() && token.Error() != nil {
				c.logger.Error("mqtt subscribe failed",
					zap.String("broker", c.desc.Name), zap.String("topic", topic), zap.Error(token.Error()))
			}
		}
	})

	client := mqtt.NewClient(opts)
	if err := c.breaker.Guard(func() error {
		token := client.Connect()
		token.Wait()
		return token.Error()
	}); err != nil {
		return fmt.Errorf("broker %q: mqtt connect: %w", c.desc.Name, err)
	}

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

func (c *mqttClient) dispatcher(handler Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		handler(c.desc.Name, msg.Topic(), msg.Payload())
	}
}
