package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/infrastructure/client"
	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/St1cky1/todo-service/internal/metrics"
	"github.com/St1cky1/todo-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	consumerTag    = "audit_worker"
	reconnectDelay = 5 * time.Second
	storeTimeout   = 5 * time.Second
)

var errDeliveriesClosed = errors.New("канал сообщений закрыт")

type AuditWorker struct {
	url            string
	auditRepo      repository.ITaskAuditRepository
	metrics        *metrics.Metrics
	reconnectDelay time.Duration
}

func NewAuditWorker(url string, auditRepo repository.ITaskAuditRepository, m *metrics.Metrics) *AuditWorker {
	return &AuditWorker{
		url:            url,
		auditRepo:      auditRepo,
		metrics:        m,
		reconnectDelay: reconnectDelay,
	}
}

// Start потребляет очередь аудита до отмены ctx, при обрыве переподключается
func (w *AuditWorker) Start(ctx context.Context) error {
	logging.Logger.Info("🔄 Audit Worker: подключение к RabbitMQ...")

	for {
		err := w.run(ctx)
		if ctx.Err() != nil {
			logging.Logger.Info("🛑 Audit Worker остановлен")
			return nil
		}

		logging.Logger.WithError(err).Warnf("❌ Audit Worker ошибка, переподключение через %s", w.reconnectDelay)
		select {
		case <-ctx.Done():
			logging.Logger.Info("🛑 Audit Worker остановлен")
			return nil
		case <-time.After(w.reconnectDelay):
		}
	}
}

func (w *AuditWorker) run(ctx context.Context) error {
	// Отдельное соединение для consumer'а
	conn, err := amqp.Dial(w.url)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("ошибка создания канала: %w", err)
	}
	defer channel.Close()

	if _, err := client.DeclareAuditQueue(channel); err != nil {
		return err
	}

	msgs, err := channel.Consume(
		client.AuditQueue, // queue
		consumerTag,       // consumer tag
		false,             // auto-ack (false - подтверждаем вручную)
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("ошибка создания consumer: %w", err)
	}

	logging.Logger.Info("✅ Audit Worker запущен. Ожидаем сообщения...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			w.processMessage(ctx, msg)
		}
	}
}

func (w *AuditWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	log := logging.Logger.WithField("delivery_tag", msg.DeliveryTag)

	// 1. Парсим сообщение
	var auditMsg entity.AuditMessage
	if err := json.Unmarshal(msg.Body, &auditMsg); err != nil {
		log.WithError(err).Error("❌ Ошибка парсинга сообщения")
		w.metrics.AuditStage(metrics.StageRejected)
		_ = msg.Nack(false, false) // Не возвращаем в очередь
		return
	}

	// 2. Конвертируем в TaskAudit
	taskAudit, err := convertToTaskAudit(&auditMsg)
	if err != nil {
		log.WithError(err).Error("❌ Ошибка конвертации")
		w.metrics.AuditStage(metrics.StageRejected)
		_ = msg.Nack(false, false)
		return
	}

	// 3. Сохраняем в БД
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := w.auditRepo.Create(storeCtx, taskAudit); err != nil {
		log.WithError(err).Error("❌ Ошибка сохранения аудита")
		_ = msg.Nack(false, true) // Возвращаем в очередь для повторной обработки
		return
	}

	// 4. Подтверждаем обработку
	_ = msg.Ack(false)
	w.metrics.AuditStage(metrics.StageStored)
	log.WithFields(logrus.Fields{
		"action":  taskAudit.Action,
		"task_id": taskAudit.EntityID,
	}).Debug("✅ Аудит сохранен")
}

func convertToTaskAudit(msg *entity.AuditMessage) (*entity.TaskAudit, error) {
	if msg.EntityID == "" || msg.UserID == "" {
		return nil, errors.New("audit message without entity_id or user_id")
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown audit action %q", msg.Action)
	}

	oldValues, err := marshalValues(msg.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := marshalValues(msg.NewValues)
	if err != nil {
		return nil, err
	}
	changes, err := marshalValues(msg.Changes)
	if err != nil {
		return nil, err
	}

	changedAt := msg.Timestamp
	if changedAt.IsZero() {
		changedAt = time.Now().UTC()
	}

	return &entity.TaskAudit{
		UserID:     msg.UserID,
		Action:     msg.Action,
		EntityType: entity.AuditEntityTask,
		EntityID:   msg.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Changes:    changes,
		ChangedAt:  changedAt,
	}, nil
}

// marshalValues - map в JSON строку, nil остается nil
func marshalValues(values map[string]any) (*string, error) {
	if values == nil {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}
