package mqtt

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/config"
)

// testConfig points at a local Mosquitto. Broker tests skip when it is absent.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-automation-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 200*time.Millisecond)
	if err != nil {
		t.Skip("no MQTT broker on 127.0.0.1:1883")
	}
	conn.Close()

	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Topics
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Command", topics.Command("mod-a", "light-1"), "graylogic/command/mod-a/light-1"},
		{"State", topics.State("mod-a", "light-1"), "graylogic/state/mod-a/light-1"},
		{"Health", topics.Health("mod-a"), "graylogic/health/mod-a"},
		{"AllStates", topics.AllStates(), "graylogic/state/+/+"},
		{"AllHealth", topics.AllHealth(), "graylogic/health/+"},
		{"SystemStatus", topics.SystemStatus(), "graylogic/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseDeviceTopic(t *testing.T) {
	category, module, device, err := ParseDeviceTopic("graylogic/state/mod-a/motion-1")
	if err != nil {
		t.Fatalf("ParseDeviceTopic() error = %v", err)
	}
	if category != CategoryState || module != "mod-a" || device != "motion-1" {
		t.Errorf("got (%q, %q, %q)", category, module, device)
	}

	for _, bad := range []string{
		"",
		"graylogic/state/mod-a",
		"graylogic/state/mod-a/",
		"other/state/mod-a/dev",
		"graylogic/state/mod-a/dev/extra",
	} {
		if _, _, _, err := ParseDeviceTopic(bad); !errors.Is(err, ErrUnknownTopic) {
			t.Errorf("ParseDeviceTopic(%q) error = %v, want ErrUnknownTopic", bad, err)
		}
	}
}

func TestParseHealthTopic(t *testing.T) {
	module, err := ParseHealthTopic("graylogic/health/mod-b")
	if err != nil || module != "mod-b" {
		t.Fatalf("ParseHealthTopic() = (%q, %v)", module, err)
	}
	for _, bad := range []string{"graylogic/health/", "graylogic/state/mod-b", "graylogic/health/a/b"} {
		if _, err := ParseHealthTopic(bad); !errors.Is(err, ErrUnknownTopic) {
			t.Errorf("ParseHealthTopic(%q) error = %v, want ErrUnknownTopic", bad, err)
		}
	}
}

// =============================================================================
// Options
// =============================================================================

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q", got)
	}
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() with TLS = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "hub"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if opts.ClientID != cfg.Broker.ClientID {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "hub" || opts.Password != "secret" {
		t.Errorf("credentials not applied")
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Errorf("AutoReconnect=%v CleanSession=%v, want both true", opts.AutoReconnect, opts.CleanSession)
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Errorf("TLS configured without cfg.Broker.TLS")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "hub-1")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatalf("will not enabled and retained")
	}
	if opts.WillTopic != "graylogic/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" || msg.ClientID != "hub-1" {
		t.Errorf("will payload = %+v", msg)
	}
}

func TestStatusPayload(t *testing.T) {
	var msg statusMessage
	if err := json.Unmarshal(statusPayload("hub-1", "online", ""), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Status != "online" || msg.Reason != "" {
		t.Errorf("payload = %+v", msg)
	}
	if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", msg.Timestamp, err)
	}
}

// =============================================================================
// Guards (no broker needed)
// =============================================================================

func TestDisconnectedClient(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if c.IsConnected() {
		t.Error("IsConnected() = true on a client that never connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := c.Publish("graylogic/x", nil, 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() = %v, want ErrNotConnected", err)
	}
	handler := func(string, []byte) error { return nil }
	if err := c.Subscribe("graylogic/x", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() = %v, want ErrNotConnected", err)
	}
	if err := c.Unsubscribe("graylogic/x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() = %v, want ErrNotConnected", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d", c.SubscriptionCount())
	}
}

func TestInputValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("t", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("t", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"subscribe empty topic", c.Subscribe("", 1, handler), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("t", 3, handler), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("t", 1, nil), ErrSubscribeFailed},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns int
	errs  int
}

func (l *recordingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *recordingLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errs++
	l.mu.Unlock()
}

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

func TestWrapHandler_RecoversAndLogs(t *testing.T) {
	c := &Client{}
	logger := &recordingLogger{}
	c.SetLogger(logger)

	msg := fakeMessage{topic: "graylogic/state/mod-a/light-1"}
	c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })(nil, msg)
	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, msg)

	if logger.warns != 1 || logger.errs != 1 {
		t.Errorf("warns=%d errs=%d, want 1 and 1", logger.warns, logger.errs)
	}
}

// =============================================================================
// Broker
// =============================================================================

func TestPublishSubscribeRoundtrip(t *testing.T) {
	client := connectOrSkip(t)

	topic := Topics{}.State("mod-test", "light-rt")
	received := make(chan []byte, 1)
	err := client.Subscribe(Topics{}.AllStates(), 1, func(got string, payload []byte) error {
		if got == topic {
			received <- payload
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(Topics{}.AllStates()) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	if err := client.Publish(topic, []byte(`{"state":{"on":true}}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != `{"state":{"on":true}}` {
			t.Errorf("payload = %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	if err := client.Unsubscribe(Topics{}.AllStates()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after Unsubscribe", client.SubscriptionCount())
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the connect timeout")
	}
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
