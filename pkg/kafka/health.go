package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/health"
)

// HealthCheck reports Kafka as up when any broker accepts a connection.
// Event publishing is best effort, so an unreachable cluster only degrades
// the service.
func HealthCheck(brokers []string) health.Check {
	return health.PingCheck(func(ctx context.Context) error {
		return dialAny(ctx, brokers, kafka.DialContext)
	}, health.StatusDegraded)
}

func dialAny(ctx context.Context, brokers []string, dial func(ctx context.Context, network, address string) (*kafka.Conn, error)) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var errs []error
	for _, broker := range brokers {
		conn, err := dial(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		return conn.Close()
	}
	return errors.Join(errs...)
}
