package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// TransactionEvent событие жизненного цикла транзакции
type TransactionEvent struct {
	PaymentID    string    `json:"payment_id"`
	TgID         int64     `json:"tg_id"`
	Subscription string    `json:"subscription"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Producer определяет интерфейс для публикации событий транзакций.
type Producer interface {
	// PublishTransactionEvent отправляет событие, связанное с транзакцией.
	// PaymentID используется как ключ сообщения, поэтому все события одной
	// транзакции попадают в одну партицию и сохраняют порядок.
	PublishTransactionEvent(ctx context.Context, event TransactionEvent) error
	// Close закрывает соединение продюсера Kafka.
	Close() error
}

// saramaProducer реализует интерфейс Producer, используя IBM/sarama.
type saramaProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSaramaProducer создает и настраивает новый продюсер Kafka.
func NewSaramaProducer(brokers []string, topic string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		log.Errorw("Kafka brokers list is empty in config, cannot create producer")
		return nil, errors.New("kafka brokers are not configured")
	}

	config := sarama.NewConfig()
	config.Version = sarama.V3_3_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Infow("Kafka producer initialized", "brokers", brokers, "topic", topic)
	return &saramaProducer{
		producer: producer,
		topic:    topic,
		log:      log,
	}, nil
}

// PublishTransactionEvent преобразует событие в JSON и отправляет в Kafka.
func (k *saramaProducer) PublishTransactionEvent(ctx context.Context, event TransactionEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		k.log.Errorw("Failed to marshal transaction event", "error", err, "paymentID", event.PaymentID)
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.PaymentID),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		k.log.Errorw("Failed to publish transaction event", "error", err, "paymentID", event.PaymentID)
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}

	k.log.Debugw("Transaction event published",
		"paymentID", event.PaymentID, "status", event.Status,
		"partition", partition, "offset", offset)
	return nil
}

// Close закрывает продюсер Kafka.
func (k *saramaProducer) Close() error {
	return k.producer.Close()
}
