package rabbitmq

import "github.com/magabrotheeeer/mindup/internal/models"

// ExchangeNotifications обменник, через который идут все уведомления.
const ExchangeNotifications = "notifications"

const prefetchCount = 10

// QueueConfig пара очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди для каждого вида уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.verification", RoutingKey: string(models.NotificationVerification)},
		{QueueName: "notification.password_reset", RoutingKey: string(models.NotificationPasswordReset)},
		{QueueName: "notification.chat_request", RoutingKey: string(models.NotificationChatRequest)},
		{QueueName: "notification.appointment_reminder", RoutingKey: string(models.NotificationAppointmentReminder)},
	}
}
