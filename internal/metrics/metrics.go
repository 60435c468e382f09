// Package metrics exposes Prometheus counters for the master node: link
// rounds by outcome, state transitions and the active state.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
)

const (
	namespace = "alarm_panel"

	// shutdownTimeout bounds the graceful stop of the HTTP endpoint.
	shutdownTimeout = 5 * time.Second
)

//nolint:gochecknoglobals // Fixed label set of the state gauge.
var states = []alarm.SystemState{
	alarm.Disarmed,
	alarm.Armed,
	alarm.ChangePassword,
	alarm.AlarmTriggered,
}

// Collector holds the master node metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// rounds counts link rounds by reading and outcome.
	rounds *prometheus.CounterVec
	// transitions counts state changes by source and target.
	transitions *prometheus.CounterVec
	// state is 1 for the active state and 0 for the others.
	state *prometheus.GaugeVec
	// sounder is 1 while the sounder plays.
	sounder prometheus.Gauge
}

// New creates a collector with the initial state set to Disarmed.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "rounds_total",
			Help:      "Sensor link rounds by reading and outcome.",
		}, []string{"reading", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State machine transitions.",
		}, []string{"from", "to"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Active state of the master node.",
		}, []string{"state"}),
		sounder: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sounder_on",
			Help:      "Whether the alarm sounder is playing.",
		}),
	}

	c.registry.MustRegister(c.rounds, c.transitions, c.state, c.sounder)
	c.setState(alarm.Disarmed)

	return c
}

// ObserveRound records one link round. It matches link.RoundHook.
func (c *Collector) ObserveRound(reading alarm.SensorReading, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}

	c.rounds.WithLabelValues(reading.String(), outcome).Inc()
}

// StateChanged records a transition. It implements controller.Observer.
func (c *Collector) StateChanged(_ context.Context, snapshot *alarm.Snapshot) {
	c.transitions.WithLabelValues(snapshot.Previous.String(), snapshot.State.String()).Inc()
	c.setState(snapshot.State)

	if snapshot.SounderOn {
		c.sounder.Set(1)
	} else {
		c.sounder.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) setState(active alarm.SystemState) {
	for _, s := range states {
		value := 0.0
		if s == active {
			value = 1
		}

		c.state.WithLabelValues(s.String()).Set(value)
	}
}

// Serve exposes /metrics on address until ctx is canceled.
func (c *Collector) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	logger.InfoKV(ctx, "Metrics endpoint listening", "address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx) //nolint:errcheck // Best effort on exit.
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	<-done

	return nil
}
