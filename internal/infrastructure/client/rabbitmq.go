package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/St1cky1/todo-service/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// AuditQueue - очередь аудита задач
const AuditQueue = "task_audit_logs"

// publishSession - канал публикации вместе со своим соединением
type publishSession interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type sessionDialer func(url string) (publishSession, error)

type amqpSession struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (s *amqpSession) IsClosed() bool {
	return s.conn.IsClosed() || s.Channel.IsClosed()
}

func (s *amqpSession) Close() error {
	_ = s.Channel.Close()
	return s.conn.Close()
}

func dialSession(url string) (publishSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := DeclareAuditQueue(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &amqpSession{Channel: channel, conn: conn}, nil
}

// RabbitMQClient публикует аудит. Закрытое брокером соединение
// переоткрывается при следующей публикации, которую пропустил breaker.
type RabbitMQClient struct {
	url     string
	dial    sessionDialer
	mu      sync.Mutex
	session publishSession
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewRabbitMQClient(url string, m *metrics.Metrics) (*RabbitMQClient, error) {
	return newRabbitMQClient(url, m, dialSession)
}

func newRabbitMQClient(url string, m *metrics.Metrics, dial sessionDialer) (*RabbitMQClient, error) {
	session, err := dial(url)
	if err != nil {
		return nil, err
	}

	return &RabbitMQClient{
		url:     url,
		dial:    dial,
		session: session,
		breaker: newPublishBreaker(),
		metrics: m,
	}, nil
}

// currentSession возвращает живую сессию, при необходимости переподключаясь
func (c *RabbitMQClient) currentSession() (publishSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && !c.session.IsClosed() {
		return c.session, nil
	}
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
	}

	logging.Logger.Info("🔄 RabbitMQ publisher: переподключение...")
	session, err := c.dial(c.url)
	if err != nil {
		return nil, err
	}
	c.session = session
	logging.Logger.Info("✅ RabbitMQ publisher переподключен")
	return session, nil
}

// DeclareAuditQueue - общая декларация для publisher и consumer
func DeclareAuditQueue(channel *amqp.Channel) (amqp.Queue, error) {
	queue, err := channel.QueueDeclare(
		AuditQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", AuditQueue, err)
	}
	return queue, nil
}

func newPublishBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-publish-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func (c *RabbitMQClient) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal audit message: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		session, err := c.currentSession()
		if err != nil {
			return nil, err
		}
		return nil, session.PublishWithContext(
			ctx,
			"",         // exchange
			AuditQueue, // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp.Persistent, // Сообщения сохраняются на диск
				Timestamp:    message.Timestamp,
			},
		)
	})
	if err != nil {
		c.metrics.AuditStage(metrics.StagePublishFailed)
		return fmt.Errorf("failed to publish audit message: %w", err)
	}

	c.metrics.AuditStage(metrics.StagePublished)
	logging.Logger.WithFields(logrus.Fields{
		"action":    message.Action,
		"entity_id": message.EntityID,
	}).Debug("Отправлено сообщение в RabbitMQ")
	return nil
}

func (c *RabbitMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
