package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/config"
)

func dialChannel(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return conn, ch, nil
}

func deadLetterExchange(exchange string) string { return exchange + ".dlx" }

// declareTopology объявляет topic-exchange задач и dead-letter exchange для него.
func declareTopology(ch *amqp091.Channel, exchange string) error {
	for _, name := range []string{exchange, deadLetterExchange(exchange)} {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}
	return nil
}

type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewAMQPPublisher(cfg config.MQConfig) (*AMQPPublisher, error) {
	conn, ch, err := dialChannel(cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := declareTopology(ch, cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: cfg.Exchange}, nil
}

func (p *AMQPPublisher) IsConnected() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

func (p *AMQPPublisher) Publish(ctx context.Context, task Task) error {
	return p.channel.PublishWithContext(
		ctx,
		p.exchange,
		string(task.Kind),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    task.ID.String(),
			Type:         string(task.Kind),
			Timestamp:    time.Now().UTC(),
			Body:         task.Payload,
			DeliveryMode: amqp091.Persistent,
		},
	)
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Consumer читает задачи из очереди и отдаёт их Router.
// Подтверждение ручное: ack после успешной обработки, nack с повтором
// при первой ошибке и в dead-letter при повторной.
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
	router  *Router
	logger  *zap.Logger
}

func NewConsumer(cfg config.MQConfig, router *Router, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := dialChannel(cfg.URL)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := declareTopology(ch, cfg.Exchange); err != nil {
		return fail(err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			return fail(fmt.Errorf("failed to set qos: %w", err))
		}
	}

	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, amqp091.Table{
		"x-dead-letter-exchange": deadLetterExchange(cfg.Exchange),
	})
	if err != nil {
		return fail(fmt.Errorf("failed to declare queue: %w", err))
	}
	dlq, err := ch.QueueDeclare(cfg.Queue+".dlq", true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to declare dead-letter queue: %w", err))
	}
	if err := ch.QueueBind(dlq.Name, "#", deadLetterExchange(cfg.Exchange), false, nil); err != nil {
		return fail(fmt.Errorf("failed to bind dead-letter queue: %w", err))
	}

	for _, kind := range router.Kinds() {
		if err := ch.QueueBind(q.Name, string(kind), cfg.Exchange, false, nil); err != nil {
			return fail(fmt.Errorf("failed to bind queue to %s: %w", kind, err))
		}
	}

	logger.Info("consumer initialized",
		zap.String("queue", q.Name),
		zap.String("exchange", cfg.Exchange),
	)

	return &Consumer{conn: conn, channel: ch, queue: q.Name, router: router, logger: logger}, nil
}

// Run блокируется до отмены ctx или закрытия канала.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	task := Task{Kind: Kind(msg.RoutingKey), Payload: msg.Body}
	id, err := uuid.Parse(msg.MessageId)
	if err != nil {
		c.logger.Error("task without valid message id, dead-lettering",
			zap.String("kind", msg.RoutingKey),
			zap.String("message_id", msg.MessageId),
		)
		_ = msg.Nack(false, false)
		return
	}
	task.ID = id

	if err := c.router.Handle(ctx, task); err != nil {
		requeue := !msg.Redelivered
		c.logger.Error("task handler failed",
			zap.String("kind", msg.RoutingKey),
			zap.String("task_id", msg.MessageId),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		if err := msg.Nack(false, requeue); err != nil {
			c.logger.Error("failed to nack task", zap.Error(err))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack task", zap.String("task_id", msg.MessageId), zap.Error(err))
	}
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
