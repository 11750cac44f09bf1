package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeToken is a paho token whose completion the test controls.
type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func stalledToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// fakeMessage carries a payload into the subscription callback.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeClient implements just enough of mqtt.Client for FixSource. If
// deliver is set, the payload is handed to the subscription callback as
// soon as Subscribe is called.
type fakeClient struct {
	subscribeToken *fakeToken
	deliver        [][]byte
	unsubscribed   []string
}

func (c *fakeClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	for _, payload := range c.deliver {
		cb(c, fakeMessage{topic: topic, payload: payload})
	}
	return c.subscribeToken
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.unsubscribed = append(c.unsubscribed, topics...)
	return doneToken(nil)
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return doneToken(nil) }
func (c *fakeClient) Disconnect(quiesce uint) {}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return doneToken(nil)
}
func (c *fakeClient) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	return doneToken(nil)
}
func (c *fakeClient) AddRoute(topic string, cb mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func TestFixSource_Current_DeliversFix(t *testing.T) {
	payload, err := json.Marshal(models.Fix{Latitude: 40.19, Longitude: 29.06, Accuracy: 5})
	require.NoError(t, err)
	client := &fakeClient{subscribeToken: doneToken(nil), deliver: [][]byte{payload}}

	source := NewFixSource(client, "bus-1")
	fix, err := source.Current(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 40.19, fix.Latitude, 1e-9)
	assert.InDelta(t, 29.06, fix.Longitude, 1e-9)
	assert.Contains(t, client.unsubscribed, FixTopic("bus-1"))
}

func TestFixSource_Current_StalledSubscribeHonorsContext(t *testing.T) {
	client := &fakeClient{subscribeToken: stalledToken()}
	source := NewFixSource(client, "bus-1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := source.Current(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// The subscribe ack never arrives; the deadline must bound the wait.
	assert.Less(t, time.Since(start), time.Second)
}

func TestFixSource_Current_SubscribeError(t *testing.T) {
	client := &fakeClient{subscribeToken: doneToken(errors.New("not authorised"))}
	source := NewFixSource(client, "bus-1")

	_, err := source.Current(context.Background())
	assert.ErrorContains(t, err, "not authorised")
}

func TestFixSource_Watch_MalformedPayloadReported(t *testing.T) {
	good, err := json.Marshal(models.Fix{Latitude: 40.2, Longitude: 29.07})
	require.NoError(t, err)
	client := &fakeClient{
		subscribeToken: doneToken(nil),
		deliver:        [][]byte{[]byte("{not json"), good},
	}
	source := NewFixSource(client, "bus-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fixes, errs := source.Watch(ctx)

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "malformed fix payload")
	case <-time.After(time.Second):
		t.Fatal("expected a malformed payload error")
	}

	select {
	case fix := <-fixes:
		assert.InDelta(t, 40.2, fix.Latitude, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("expected the well-formed fix")
	}
}
