package broker

import (
	"encoding/json"
	"fmt"

	"github.com/campusnet/campusnet/internal/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// LocationPublisher fans accepted location records out to observers.
// Records are published retained so a late subscriber immediately sees the
// last known state of the bus.
type LocationPublisher struct {
	client mqtt.Client
	qos    byte
}

// NewLocationPublisher creates a publisher on an existing client.
func NewLocationPublisher(client mqtt.Client) *LocationPublisher {
	return &LocationPublisher{client: client, qos: 1}
}

// PublishLocation publishes a record on the bus's location topic.
func (p *LocationPublisher) PublishLocation(rec models.LocationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal location record: %w", err)
	}
	token := p.client.Publish(LocationTopic(rec.BusID), p.qos, true, payload)
	token.Wait()
	return token.Error()
}

// SubscribeAll delivers every published location record to fn, across all
// buses. Used by the websocket hub to feed observers.
func (p *LocationPublisher) SubscribeAll(fn func(models.LocationRecord)) error {
	token := p.client.Subscribe(locationTopicPrefix+"+", p.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var rec models.LocationRecord
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			return
		}
		fn(rec)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe locations: %w", token.Error())
	}
	return nil
}
