package worker

import (
	"context"

	"go-gin-event-registration/internal/notify"
	"go-gin-event-registration/internal/queue"
	"go-gin-event-registration/pkg/logger"

	"go.uber.org/zap"
)

type NotificationWorker interface {
	// 訂閱通知隊列並開始寄信
	Start(ctx context.Context) error
	// 訂閱結束且最後一則訊息處理完後關閉
	Done() <-chan struct{}
}

type NotificationWorkerImpl struct {
	queue    queue.NotificationQueue
	composer *notify.Composer
	mailer   notify.Mailer
	done     chan struct{}
	log      *zap.Logger
}

func NewNotificationWorker(q queue.NotificationQueue, composer *notify.Composer, mailer notify.Mailer) NotificationWorker {
	return &NotificationWorkerImpl{
		queue:    q,
		composer: composer,
		mailer:   mailer,
		done:     make(chan struct{}),
		log:      logger.WithComponent("worker"),
	}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()
	return nil
}

func (w *NotificationWorkerImpl) Done() <-chan struct{} {
	return w.done
}

func (w *NotificationWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	n := msg.Data
	log := w.log.With(
		zap.String("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.String("event_id", n.EventID.String()))

	mail, err := w.composer.Compose(n)
	if err != nil {
		// 模板錯誤重試也不會成功
		log.Error("compose notification failed, discarding", zap.Error(err))
		msg.Nack(false)
		return
	}

	if err := w.mailer.Send(ctx, mail); err != nil {
		// 寄信服務暫時失敗，交給隊列稍後重試
		log.Warn("send notification failed, will retry", zap.Error(err))
		msg.Nack(true)
		return
	}

	log.Debug("notification sent")
	msg.Ack()
}
