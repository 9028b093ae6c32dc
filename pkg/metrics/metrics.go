// Package metrics exposes Prometheus counters for bookings, logins, HTTP traffic and
// Kafka messaging.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labbook"

// Recorder is what services and middleware depend on.
type Recorder interface {
	BookingCreated()
	BookingConflict()
	BookingTransition(to string)
	LoginFailure()
	LoginLockout()
	ObserveHTTPRequest(method string, statusCode int, duration time.Duration)
	ObserveKafkaPublish(topic string, err error, duration time.Duration)
	ObserveKafkaConsume(topic string, err error, duration time.Duration)
}

type Collector struct {
	bookingsCreated    prometheus.Counter
	bookingConflicts   prometheus.Counter
	bookingTransitions *prometheus.CounterVec
	loginFailures      prometheus.Counter
	loginLockouts      prometheus.Counter
	httpDuration       *prometheus.HistogramVec
	kafkaMessages      *prometheus.CounterVec
	kafkaDuration      *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected because the slot was taken.",
		}),
		bookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status changes by target status.",
		}, []string{"to"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Failed login attempts.",
		}),
		loginLockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_lockouts_total",
			Help:      "Identities locked out after repeated login failures.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status_code"}),
		kafkaMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_total",
			Help:      "Kafka messages by direction and outcome.",
		}, []string{"topic", "direction", "result"}),
		kafkaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_message_duration_seconds",
			Help:      "Time spent publishing or handling one Kafka message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic", "direction"}),
	}

	reg.MustRegister(
		c.bookingsCreated,
		c.bookingConflicts,
		c.bookingTransitions,
		c.loginFailures,
		c.loginLockouts,
		c.httpDuration,
		c.kafkaMessages,
		c.kafkaDuration,
	)

	return c
}

func (c *Collector) BookingCreated() {
	c.bookingsCreated.Inc()
}

func (c *Collector) BookingConflict() {
	c.bookingConflicts.Inc()
}

func (c *Collector) BookingTransition(to string) {
	c.bookingTransitions.WithLabelValues(to).Inc()
}

func (c *Collector) LoginFailure() {
	c.loginFailures.Inc()
}

func (c *Collector) LoginLockout() {
	c.loginLockouts.Inc()
}

func (c *Collector) ObserveHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

func (c *Collector) ObserveKafkaPublish(topic string, err error, duration time.Duration) {
	c.observeKafka(topic, "publish", err, duration)
}

func (c *Collector) ObserveKafkaConsume(topic string, err error, duration time.Duration) {
	c.observeKafka(topic, "consume", err, duration)
}

func (c *Collector) observeKafka(topic, direction string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.kafkaMessages.WithLabelValues(topic, direction, result).Inc()
	c.kafkaDuration.WithLabelValues(topic, direction).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) BookingCreated() {}
func (Nop) BookingConflict() {}
func (Nop) BookingTransition(string) {}
func (Nop) LoginFailure() {}
func (Nop) LoginLockout() {}
func (Nop) ObserveHTTPRequest(string, int, time.Duration) {}
func (Nop) ObserveKafkaPublish(string, error, time.Duration) {}
func (Nop) ObserveKafkaConsume(string, error, time.Duration) {}
