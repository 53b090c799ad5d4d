package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"hpmsklad/server/internal/services"
	"hpmsklad/server/internal/utils"

	"github.com/segmentio/kafka-go"
)

// messageWriter часть kafka.Writer, нужная продюсеру
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMovementProducer публикует события движения в Kafka.
// Ключ сообщения = evidencni_cislo, поэтому события одной позиции идут по порядку.
type KafkaMovementProducer struct {
	writer    messageWriter
	topic     string
	sentCount int64 // Счетчик отправленных сообщений
}

// NewKafkaMovementProducer создает асинхронный writer для топика движений
func NewKafkaMovementProducer(brokers, topic string, auth KafkaAuth) *KafkaMovementProducer {
	writer := &kafka.Writer{
		Addr:      kafka.TCP(ParseKafkaBrokers(brokers)...),
		Topic:     topic,
		Balancer:  &kafka.Hash{},
		Transport: CreateKafkaTransport(auth),
		Async:     true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("❌ Kafka: не удалось отправить %d событий движения: %v", len(messages), err)
			}
		},
	}
	log.Printf("✅ Kafka producer подключен к %s (topic=%s)", brokers, topic)
	return &KafkaMovementProducer{writer: writer, topic: topic}
}

// NotifyMovement отправляет событие; ошибка только логируется
func (p *KafkaMovementProducer) NotifyMovement(ev services.MovementEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		log.Printf("⚠️ Kafka: ошибка кодирования события %d: %v", ev.AuditLogID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.EvidencniCislo), 10)),
		Value: value,
		Time:  ev.Cas,
	})
	if err != nil {
		log.Printf("❌ Kafka: ошибка отправки события %d: %v", ev.AuditLogID, err)
		return
	}
	atomic.AddInt64(&p.sentCount, 1)
}

// SentCount количество отправленных событий
func (p *KafkaMovementProducer) SentCount() int64 {
	return atomic.LoadInt64(&p.sentCount)
}

// Close закрывает Kafka writer
func (p *KafkaMovementProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// KafkaMovementConsumer читает события движения из Kafka и отправляет их в ленту.
// Каждый экземпляр сервера читает своей группой, чтобы все клиенты получили все события.
type KafkaMovementConsumer struct {
	reader    *kafka.Reader
	hub       *Hub
	topic     string
	processed int64
}

// NewKafkaMovementConsumer создает reader топика движений
func NewKafkaMovementConsumer(brokers, topic, groupID string, auth KafkaAuth, hub *Hub) *KafkaMovementConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     ParseKafkaBrokers(brokers),
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset, // Лента показывает только новые события
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		Dialer:      CreateKafkaDialer(auth),
	})
	return &KafkaMovementConsumer{reader: reader, hub: hub, topic: topic}
}

// Run читает сообщения, пока не отменен ctx
func (kc *KafkaMovementConsumer) Run(ctx context.Context) error {
	log.Printf("📡 Kafka consumer ленты запущен: topic=%s", kc.topic)
	defer kc.reader.Close()
	for {
		msg, err := kc.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Println("🛑 Kafka consumer ленты остановлен")
				return nil
			}
			log.Printf("⚠️ Kafka consumer ленты ошибка чтения: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		forwardMovement(kc.hub, msg.Value)
		atomic.AddInt64(&kc.processed, 1)
	}
}

// RedisMovementPublisher публикует события движения в Redis Pub/Sub
type RedisMovementPublisher struct {
	redis *utils.RedisClient
}

// NewRedisMovementPublisher создает publisher канала движений
func NewRedisMovementPublisher(r *utils.RedisClient) *RedisMovementPublisher {
	return &RedisMovementPublisher{redis: r}
}

// NotifyMovement публикует событие; ошибка только логируется
func (p *RedisMovementPublisher) NotifyMovement(ev services.MovementEvent) {
	if err := p.redis.Publish(utils.ChannelMovements, ev); err != nil {
		log.Printf("⚠️ Redis: ошибка публикации события %d: %v", ev.AuditLogID, err)
	}
}

// RunRedisMovementSubscriber пересылает события канала движений в ленту, пока не отменен ctx
func RunRedisMovementSubscriber(ctx context.Context, r *utils.RedisClient, hub *Hub) error {
	messages, closeFn := r.Subscribe(ctx, utils.ChannelMovements)
	defer closeFn()
	log.Printf("📡 Redis подписка на %s запущена", utils.ChannelMovements)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			forwardMovement(hub, []byte(msg.Payload))
		}
	}
}

// forwardMovement декодирует событие движения и отправляет его клиентам
func forwardMovement(hub *Hub, payload []byte) {
	var ev services.MovementEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("⚠️ Некорректное событие движения: %v", err)
		return
	}
	hub.NotifyMovement(ev)
}
