package kafka_middleware

import (
	"context"
	"time"

	"labbook/pkg/kafka"
	"labbook/pkg/metrics"
)

func MetricsProducerMiddleware(rec metrics.Recorder) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		rec.ObserveKafkaPublish(msg.Topic, err, time.Since(start))
		return err
	}
}

func MetricsConsumerMiddleware(rec metrics.Recorder) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		rec.ObserveKafkaConsume(msg.Topic, err, time.Since(start))
		return err
	}
}
