package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/l1jgo/battlesim/internal/core/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BattleCollector bundles the simulation's Prometheus metrics. Event-driven
// counters are fed by Attach; tick timing and the entity gauge by ObserveTick.
type BattleCollector struct {
	gatherer prometheus.Gatherer

	TickDuration   prometheus.Histogram
	Entities       prometheus.Gauge
	Kills          prometheus.Counter
	Deaths         prometheus.Counter
	Damage         *prometheus.CounterVec
	DroppedAttacks *prometheus.CounterVec
	Battles        *prometheus.CounterVec
}

// NewBattleCollector registers battle metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewBattleCollector(reg prometheus.Registerer) (*BattleCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tick, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "battlesim_tick_duration_seconds",
		Help:    "Wall time spent in one world tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "battlesim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "battlesim_entities",
		Help: "Records currently held by the entity store.",
	}), "battlesim_entities")
	if err != nil {
		return nil, err
	}
	kills, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "battlesim_kills_total",
		Help: "Hostile records reclaimed by cleanup.",
	}), "battlesim_kills_total")
	if err != nil {
		return nil, err
	}
	deaths, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "battlesim_deaths_total",
		Help: "Player-camp records reclaimed by cleanup.",
	}), "battlesim_deaths_total")
	if err != nil {
		return nil, err
	}
	damage, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlesim_damage_total",
		Help: "Hit points removed, labeled by source.",
	}, []string{"source"}), "battlesim_damage_total")
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlesim_attacks_dropped_total",
		Help: "Attack requests suppressed or discarded, labeled by reason.",
	}, []string{"reason"}), "battlesim_attacks_dropped_total")
	if err != nil {
		return nil, err
	}
	battles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlesim_battles_total",
		Help: "Finished battles, labeled by result.",
	}, []string{"result"}), "battlesim_battles_total")
	if err != nil {
		return nil, err
	}

	return &BattleCollector{
		gatherer:       gatherer,
		TickDuration:   tick,
		Entities:       entities,
		Kills:          kills,
		Deaths:         deaths,
		Damage:         damage,
		DroppedAttacks: dropped,
		Battles:        battles,
	}, nil
}

// Attach subscribes the collector to world notifications. resultName maps a
// BattleEnded result code to its label.
func (c *BattleCollector) Attach(bus *event.Bus, resultName func(uint8) string) {
	event.Subscribe(bus, func(e event.DamageDealt) {
		c.Damage.WithLabelValues(e.Source.String()).Add(float64(e.Amount))
	})
	event.Subscribe(bus, func(e event.EntityRemoved) {
		if e.PlayerSide {
			c.Deaths.Inc()
		} else {
			c.Kills.Inc()
		}
	})
	event.Subscribe(bus, func(e event.AttackDropped) {
		c.DroppedAttacks.WithLabelValues(e.Reason).Inc()
	})
	event.Subscribe(bus, func(e event.BattleEnded) {
		c.Battles.WithLabelValues(resultName(e.ResultType)).Inc()
	})
}

// ObserveTick records one tick's wall time and the store size after it.
func (c *BattleCollector) ObserveTick(d time.Duration, entities int) {
	if c == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
	c.Entities.Set(float64(entities))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *BattleCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
