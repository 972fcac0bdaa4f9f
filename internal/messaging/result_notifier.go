package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ResultNotifier defines the interface for publishing carousel task results.
//
//go:generate mockery --name ResultNotifier --output ../mocks --outpkg mocks --case=underscore
type ResultNotifier interface {
	NotifyResult(ctx context.Context, result CarouselResultPayload) error
}

// RabbitResultNotifier публикует результаты задач в durable очередь обновлений.
// Платформа историй читает её, чтобы знать судьбу каждой поставленной задачи.
type RabbitResultNotifier struct {
	ch        *amqp091.Channel
	queueName string
	logger    *zap.Logger
	mu        sync.Mutex
}

var _ ResultNotifier = (*RabbitResultNotifier)(nil)

// NewRabbitResultNotifier открывает канал и объявляет очередь обновлений.
func NewRabbitResultNotifier(conn *amqp091.Connection, queueName string, logger *zap.Logger) (*RabbitResultNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for result notifier: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare updates queue %s: %w", queueName, err)
	}

	return &RabbitResultNotifier{
		ch:        ch,
		queueName: queueName,
		logger:    logger.Named("RabbitResultNotifier"),
	}, nil
}

// NotifyResult отправляет результат задачи. CorrelationId сообщения равен
// task_id, чтобы платформа могла сопоставить ответ с задачей.
func (n *RabbitResultNotifier) NotifyResult(ctx context.Context, result CarouselResultPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil {
		return errors.New("result notifier channel is closed")
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result payload: %w", err)
	}

	err = n.ch.PublishWithContext(ctx,
		"",          // exchange (default, direct to queue)
		n.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: result.TaskID,
			Timestamp:     time.Now(),
			Body:          body,
			DeliveryMode:  amqp091.Persistent, // Делаем сообщения постоянными
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish task result",
			zap.Error(err),
			zap.String("taskID", result.TaskID),
			zap.String("storyID", result.StoryID))
		return fmt.Errorf("failed to publish result: %w", err)
	}

	n.logger.Info("Published task result",
		zap.String("taskID", result.TaskID),
		zap.String("storyID", result.StoryID),
		zap.String("status", string(result.Status)))
	return nil
}

// Close закрывает канал нотификатора.
func (n *RabbitResultNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		err := n.ch.Close()
		n.ch = nil // Устанавливаем в nil после закрытия
		return err
	}
	return nil // Канал уже закрыт
}
