// Package housekeep runs the Supervisor's periodic fleet maintenance: a
// sweep that removes sessions whose watchdog fired without an explicit
// unlink, a fleet-snapshot broadcast to the websocket feed, and the gauge
// backing /metrics.
//
// It wraps gocron the same way the teacher's scheduler package does —
// register a tagged job, Start the scheduler, RemoveByTags/Shutdown on
// teardown — but drives a single DurationJob sweep instead of one CronJob
// per policy, since there is exactly one fleet to sweep rather than one
// schedule per backup policy.
package housekeep

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/supervisor/internal/registry"
	"github.com/reactorfleet/scada-core/supervisor/internal/websocket"
)

const (
	sweepInterval = 5 * time.Second
	jobTag        = "fleet-sweep"
)

var linkedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "scada",
	Subsystem: "supervisor",
	Name:      "linked_plcs",
	Help:      "Number of PLCs currently linked to this Supervisor.",
})

func init() {
	prometheus.MustRegister(linkedGauge)
}

// Housekeeper owns the gocron scheduler driving the periodic fleet sweep.
type Housekeeper struct {
	cron   gocron.Scheduler
	fleet  *registry.Fleet
	hub    *websocket.Hub
	logger *zap.Logger
}

// New creates a Housekeeper. Call Start to begin the periodic sweep.
func New(fleet *registry.Fleet, hub *websocket.Hub, logger *zap.Logger) (*Housekeeper, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Housekeeper{
		cron:   cron,
		fleet:  fleet,
		hub:    hub,
		logger: logger.Named("housekeep"),
	}, nil
}

// Start registers the sweep job and starts the scheduler.
func (h *Housekeeper) Start() error {
	_, err := h.cron.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(h.sweep),
		gocron.WithTags(jobTag),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	h.cron.Start()
	return nil
}

// Shutdown stops the scheduler and waits for any in-flight sweep to finish.
func (h *Housekeeper) Shutdown() error {
	h.cron.RemoveByTags(jobTag)
	return h.cron.Shutdown()
}

func (h *Housekeeper) sweep() {
	now := time.Now()
	reaped := h.fleet.ReapExpired(now)
	for _, plcID := range reaped {
		h.logger.Warn("reaped expired plc session", zap.Uint32("plc_id", plcID))
		h.hub.PublishFleetEvent(plcID, websocket.Message{
			Type:    websocket.MsgPlcUnlinked,
			Payload: map[string]any{"plc_id": plcID},
		})
	}

	snap := h.fleet.Snapshot()
	linkedGauge.Set(float64(h.fleet.Count()))

	payload := make([]map[string]any, 0, len(snap))
	for _, t := range snap {
		payload = append(payload, map[string]any{
			"plc_id":     t.PlcID,
			"scram":      t.Scram,
			"iss_status": t.IssStatus,
		})
	}
	h.hub.Publish(websocket.AllFleet(), websocket.Message{
		Type:    websocket.MsgFleetSnapshot,
		Payload: map[string]any{"plcs": payload},
	})
}
