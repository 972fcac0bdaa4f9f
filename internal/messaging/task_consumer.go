package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliveryHandler обрабатывает одно сообщение из очереди задач.
// Возвращает true для ack и false для nack с возвратом в очередь.
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, msg amqp091.Delivery) bool
}

// TaskConsumer читает задачи генерации каруселей из durable очереди
// с ручным подтверждением сообщений.
type TaskConsumer struct {
	conn      *amqp091.Connection
	handler   DeliveryHandler
	logger    *zap.Logger
	queueName string
	prefetch  int
	done      chan struct{}    // Канал для сигнализации о завершении
	channel   *amqp091.Channel // Канал для управления подпиской
}

// NewTaskConsumer creates a new TaskConsumer.
func NewTaskConsumer(conn *amqp091.Connection, handler DeliveryHandler, queueName string, prefetch int, logger *zap.Logger) *TaskConsumer {
	if logger == nil {
		panic("Logger is nil for TaskConsumer")
	}
	return &TaskConsumer{
		conn:      conn,
		handler:   handler,
		logger:    logger.Named("TaskConsumer"),
		queueName: queueName,
		prefetch:  prefetch,
		done:      make(chan struct{}),
	}
}

// Start begins consuming messages from the task queue.
func (c *TaskConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		c.logger.Error("Failed to open channel for task consumer", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Очередь durable: задачи переживают рестарт брокера.
	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = c.channel.Close()
		c.logger.Error("Failed to declare task queue", zap.Error(err), zap.String("queue", c.queueName))
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Qos: не брать новую задачу, пока текущая не подтверждена.
	// Генерация карусели тяжёлая, параллелить внутри одного воркера нельзя.
	err = c.channel.Qos(c.prefetch, 0, false)
	if err != nil {
		_ = c.channel.Close()
		c.logger.Error("Failed to set QoS", zap.Error(err))
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer (empty for auto-generated)
		false,       // auto-ack (выключен, подтверждаем вручную)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		_ = c.channel.Close()
		c.logger.Error("Failed to register task consumer", zap.Error(err), zap.String("queue", c.queueName))
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Task consumer started, waiting for tasks...", zap.String("queue", c.queueName))

	// Горутина для обработки входящих сообщений
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic recovered in task consumer goroutine", zap.Any("panic", r))
			}
			c.logger.Info("Task consumer goroutine stopping...")
			close(c.done)
			if c.channel != nil {
				_ = c.channel.Close()
			}
		}()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Task consumer channel closed, exiting goroutine.")
					return
				}
				if c.handler.HandleDelivery(ctx, msg) {
					if ackErr := msg.Ack(false); ackErr != nil {
						c.logger.Error("Failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
					}
				} else {
					if nackErr := msg.Nack(false, true); nackErr != nil { // requeue=true, задача вернётся в очередь
						c.logger.Error("Failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
					}
				}
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping task consumer goroutine.")
				return
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer.
func (c *TaskConsumer) Stop() error {
	c.logger.Info("Stopping task consumer...")
	if c.channel != nil {
		err := c.channel.Cancel("", false)
		if err != nil {
			c.logger.Error("Error cancelling task consumer channel", zap.Error(err))
		}
	}

	select {
	case <-c.done:
		c.logger.Info("Task consumer goroutine finished.")
	case <-time.After(5 * time.Second):
		c.logger.Warn("Timeout waiting for task consumer goroutine to stop.")
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Error closing task consumer channel during stop", zap.Error(err))
		}
	}
	c.logger.Info("Task consumer stopped.")
	return nil
}
