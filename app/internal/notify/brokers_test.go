package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Shoutrrr ---

type blockingSender struct {
	release chan struct{}
	sent    atomic.Int32
}

func (s *blockingSender) Send(message string, params *types.Params) []error {
	<-s.release
	s.sent.Add(1)
	return nil
}

func TestShoutrrr_WaitCoversAbandonedSend(t *testing.T) {
	snd := &blockingSender{release: make(chan struct{})}
	sink := &Shoutrrr{sender: snd}
	d := NewDispatcher(Options{Timeout: 20 * time.Millisecond}, sink)

	d.Notify(testAlert())
	done := make(chan struct{})
	go func() { d.Wait(); close(done) }()

	select {
	case <-done:
		t.Fatal("Wait returned while the send was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(snd.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the send finished")
	}
	assert.Equal(t, int32(1), snd.sent.Load())
}

type failingSender struct{}

func (failingSender) Send(message string, params *types.Params) []error {
	return []error{errors.New("ntfy: 500"), nil}
}

func TestShoutrrr_JoinsErrors(t *testing.T) {
	sink := &Shoutrrr{sender: failingSender{}}
	err := sink.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ntfy: 500")
}

// --- MQTT ---

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
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

type fakeMQTTClient struct {
	mqtt.Client
	connect      *fakeToken
	disconnects  int
	publishedTo  string
	publishedLen int
}

func (c *fakeMQTTClient) Connect() mqtt.Token     { return c.connect }
func (c *fakeMQTTClient) Disconnect(quiesce uint) { c.disconnects++ }

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.publishedTo = topic
	c.publishedLen = len(payload.([]byte))
	return completedToken(nil)
}

func withFakeMQTT(t *testing.T, c *fakeMQTTClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(*mqtt.ClientOptions) mqtt.Client { return c }
	t.Cleanup(func() { newMQTTClient = orig })
}

func TestNewMQTT_TimeoutDisconnects(t *testing.T) {
	client := &fakeMQTTClient{connect: &fakeToken{done: make(chan struct{})}}
	withFakeMQTT(t, client)

	sink, err := NewMQTT("tcp://127.0.0.1:1883", "pulse", "pulse/alerts", 20*time.Millisecond)
	require.Error(t, err)
	assert.Nil(t, sink)
	assert.Contains(t, err.Error(), "timeout")
	assert.Equal(t, 1, client.disconnects, "a timed out client must not keep reconnecting")
}

func TestNewMQTT_ErrorDisconnects(t *testing.T) {
	client := &fakeMQTTClient{connect: completedToken(errors.New("not authorized"))}
	withFakeMQTT(t, client)

	_, err := NewMQTT("tcp://127.0.0.1:1883", "pulse", "pulse/alerts", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
	assert.Equal(t, 1, client.disconnects)
}

func TestMQTT_PublishesAlert(t *testing.T) {
	client := &fakeMQTTClient{connect: completedToken(nil)}
	withFakeMQTT(t, client)

	sink, err := NewMQTT("tcp://127.0.0.1:1883", "pulse", "pulse/alerts", time.Second)
	require.NoError(t, err)
	require.NoError(t, sink.Notify(context.Background(), testAlert()))

	assert.Equal(t, "pulse/alerts", client.publishedTo)
	assert.Positive(t, client.publishedLen)
	assert.Zero(t, client.disconnects)

	require.NoError(t, sink.Close())
	assert.Equal(t, 1, client.disconnects)
}
