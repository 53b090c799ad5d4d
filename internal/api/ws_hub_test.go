package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func runHub(t *testing.T, hub *Hub) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

// nextMessage читает сообщение из канала рассылки без запущенного Run
func nextMessage(t *testing.T, hub *Hub) FeedMessage {
	t.Helper()
	select {
	case raw := <-hub.broadcast:
		var msg FeedMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("сообщение не разослано")
	}
	return FeedMessage{}
}

func TestHubStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub()
	stop := runHub(t, hub)
	hub.BroadcastMessage([]byte("bez klientů"))
	stop()
	assert.Equal(t, 0, hub.GetClientsCount())
}

func TestBroadcastDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.BroadcastMessage([]byte("x"))
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}

func TestMovementReachesWebSocketClient(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub()
	stop := runHub(t, hub)
	defer stop()

	r := gin.New()
	r.GET("/ws", NewWSController(hub).ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.GetClientsCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.NotifyMovement(services.MovementEvent{
		Typ:            models.TypOperaceVydej,
		EvidencniCislo: 7,
		NazevDilu:      "Ložisko",
		ZmenaMnozstvi:  -2,
		Mnozstvi:       3,
		PodMinimem:     true,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string                 `json:"type"`
		Data services.MovementEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, MessageMovement, msg.Type)
	assert.Equal(t, uint(7), msg.Data.EvidencniCislo)
	assert.Equal(t, -2, msg.Data.ZmenaMnozstvi)
	assert.True(t, msg.Data.PodMinimem)

	conn.Close()
	require.Eventually(t, func() bool { return hub.GetClientsCount() == 0 }, time.Second, 10*time.Millisecond)
}

type fakeChecker struct {
	mu    sync.Mutex
	calls int
	added []models.Sklad
	err   error
}

func (f *fakeChecker) CheckPodMinimem(ctx context.Context) ([]models.Sklad, []models.Sklad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > 1 {
		return f.added, nil, f.err
	}
	return f.added, f.added, f.err
}

func TestLowStockWorkerBroadcastsNewItems(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub()
	checker := &fakeChecker{added: []models.Sklad{{EvidencniCislo: 3, NazevDilu: "Pojistka", MinMnozstviKs: 5}}}
	w := NewLowStockWorker(checker, hub, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()

	msg := nextMessage(t, hub)
	assert.Equal(t, MessagePodMinimem, msg.Type)
	assert.Equal(t, 1, msg.Count)

	cancel()
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, w.Checks())
}

func TestLowStockWorkerSurvivesErrors(t *testing.T) {
	hub := NewHub()
	w := NewLowStockWorker(&fakeChecker{err: errors.New("redis down")}, hub, time.Hour)
	w.check(context.Background())
	assert.Len(t, hub.broadcast, 0)
	assert.EqualValues(t, 1, w.Checks())
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaProducerKeysByItem(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaMovementProducer{writer: fw, topic: "sklad.movements"}

	ev := services.MovementEvent{Typ: models.TypOperacePrijem, EvidencniCislo: 42, ZmenaMnozstvi: 5, AuditLogID: 9}
	p.NotifyMovement(ev)

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "42", string(fw.msgs[0].Key))
	var got services.MovementEvent
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, ev.AuditLogID, got.AuditLogID)
	assert.EqualValues(t, 1, p.SentCount())

	fw.err = errors.New("broker unavailable")
	p.NotifyMovement(ev)
	assert.EqualValues(t, 1, p.SentCount())
}

func TestForwardMovementSkipsGarbage(t *testing.T) {
	hub := NewHub()
	forwardMovement(hub, []byte("{nope"))
	assert.Len(t, hub.broadcast, 0)

	forwardMovement(hub, []byte(`{"typ_operace":"PŘÍJEM","evidencni_cislo":1}`))
	msg := nextMessage(t, hub)
	assert.Equal(t, MessageMovement, msg.Type)
}

func TestParseKafkaBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseKafkaBrokers(" a:9092, b:9092,"))
	assert.Empty(t, ParseKafkaBrokers(""))
}

func TestKafkaAuthTLS(t *testing.T) {
	assert.Nil(t, KafkaAuth{}.tlsConfig())
	assert.NotNil(t, KafkaAuth{Username: "u", Password: "p"}.tlsConfig())
	assert.NotNil(t, CreateKafkaDialer(KafkaAuth{Username: "u", Password: "p"}).SASLMechanism)
	assert.Nil(t, CreateKafkaTransport(KafkaAuth{}).SASL)
}
