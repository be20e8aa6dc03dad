package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/junsooki/FrameSync/internal/logging"
)

// DefaultTopic is the MQTT topic events are published on.
const DefaultTopic = "framesync/events"

const connectTimeout = 5 * time.Second

// MQTT publishes events at QoS 0 without waiting for delivery.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// DialMQTT connects to broker, e.g. tcp://localhost:1883.
func DialMQTT(broker, topic, clientID string, log *slog.Logger) (*MQTT, error) {
	log = logging.OrDiscard(log)
	mqtt.ERROR = slog.NewLogLogger(log.Handler(), slog.LevelError)
	if topic == "" {
		topic = DefaultTopic
	}

	options := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", "broker", broker, "err", err)
		})
	client := mqtt.NewClient(options)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	log.Info("mqtt connected", "broker", broker, "topic", topic)
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	m.client.Publish(m.topic, 0, false, payload)
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
