package report

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/offset"
)

// Publisher is the part of mqtt.Client used for reporting.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each result as JSON, retained, on Topic.
type MQTT struct {
	Client  Publisher
	Topic   string
	Timeout time.Duration
}

// DialMQTT connects to broker and returns a reporter publishing to topic.
func DialMQTT(broker, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("idexcal-" + uuid.NewV4().String()[:8]).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect to mqtt broker '%s'", broker)
	}
	logrus.WithFields(logrus.Fields{"broker": broker, "topic": topic}).Info("mqtt connected")
	return &MQTT{Client: client, Topic: topic, Timeout: 5 * time.Second}, nil
}

func (m *MQTT) Report(r offset.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	token := m.Client.Publish(m.Topic, 1, true, payload)
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if !token.WaitTimeout(timeout) {
		return errors.Errorf("publish to '%s' timed out", m.Topic)
	}
	return errors.Wrapf(token.Error(), "publish to '%s'", m.Topic)
}
