package broker

import (
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	fixTopicPrefix      = "campusnet/fix/"
	locationTopicPrefix = "campusnet/location/"

	connectTimeout = 10 * time.Second
)

// FixTopic is where a driver device publishes raw position samples.
func FixTopic(busID string) string { return fixTopicPrefix + busID }

// LocationTopic carries the accepted location record of a bus.
func LocationTopic(busID string) string { return locationTopicPrefix + busID }

// Connect dials the MQTT broker from the MQTT_BROKER environment variable.
func Connect(clientID string) (mqtt.Client, error) {
	brokerURL := os.Getenv("MQTT_BROKER")
	if brokerURL == "" {
		brokerURL = "tcp://localhost:1883"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(_ mqtt.Client) {
		log.WithField("broker", brokerURL).Info("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}
