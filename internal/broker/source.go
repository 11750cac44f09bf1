package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusnet/campusnet/internal/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// FixSource feeds a tracking session with the raw fixes a driver device
// publishes on the bus's fix topic. Implements tracking.Source.
type FixSource struct {
	client mqtt.Client
	busID  string
	qos    byte
}

// NewFixSource creates a source for one bus.
func NewFixSource(client mqtt.Client, busID string) *FixSource {
	return &FixSource{client: client, busID: busID, qos: 1}
}

// Current waits for the next fix on the topic, bounded by the context.
func (s *FixSource) Current(ctx context.Context) (models.Fix, error) {
	topic := FixTopic(s.busID)
	ch := make(chan models.Fix, 1)

	token := s.client.Subscribe(topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var fix models.Fix
		if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
			return
		}
		select {
		case ch <- fix:
		default:
		}
	})
	defer s.client.Unsubscribe(topic)

	// The subscribe ack itself can stall on a sick broker; the caller's
	// deadline bounds it, not just the wait for the first fix.
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return models.Fix{}, fmt.Errorf("subscribe %s: %w", topic, err)
		}
	case <-ctx.Done():
		return models.Fix{}, fmt.Errorf("waiting for fix: %w", ctx.Err())
	}

	select {
	case fix := <-ch:
		return fix, nil
	case <-ctx.Done():
		return models.Fix{}, fmt.Errorf("waiting for fix: %w", ctx.Err())
	}
}

// Watch streams fixes until the context is cancelled. Malformed payloads
// and subscription failures go to the error channel; neither channel is
// ever closed, callers select against the context instead.
func (s *FixSource) Watch(ctx context.Context) (<-chan models.Fix, <-chan error) {
	topic := FixTopic(s.busID)
	fixes := make(chan models.Fix, 16)
	errs := make(chan error, 4)

	token := s.client.Subscribe(topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var fix models.Fix
		if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
			select {
			case errs <- fmt.Errorf("malformed fix payload: %w", err):
			default:
			}
			return
		}
		select {
		case fixes <- fix:
		default:
			// Drop when the session is behind; the periodic timer
			// re-emits the latest fix anyway.
		}
	})

	go func() {
		if token.Wait() && token.Error() != nil {
			select {
			case errs <- fmt.Errorf("subscribe %s: %w", topic, token.Error()):
			default:
			}
		}
		<-ctx.Done()
		s.client.Unsubscribe(topic)
	}()

	return fixes, errs
}
