package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/shared/rplc"
	"github.com/reactorfleet/scada-core/supervisor/internal/core"
	"github.com/reactorfleet/scada-core/supervisor/internal/registry"
)

// FleetHandler exposes the fleet registry and command relay over REST.
type FleetHandler struct {
	fleet  *registry.Fleet
	core   *core.Core
	logger *zap.Logger
}

// NewFleetHandler creates a FleetHandler.
func NewFleetHandler(fleet *registry.Fleet, c *core.Core, logger *zap.Logger) *FleetHandler {
	return &FleetHandler{fleet: fleet, core: c, logger: logger.Named("fleet_handler")}
}

// telemetryView is the JSON shape returned for one PLC's telemetry.
type telemetryView struct {
	PlcID     uint32 `json:"plc_id"`
	Scram     bool   `json:"scram"`
	IssStatus uint32 `json:"iss_status"`
	UpdatedAt string `json:"updated_at"`
}

func toView(t registry.PlcTelemetry) telemetryView {
	return telemetryView{
		PlcID:     t.PlcID,
		Scram:     t.Scram,
		IssStatus: t.IssStatus,
		UpdatedAt: t.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// List handles GET /fleet — a snapshot of every linked PLC that has reported
// STATUS; a PLC that is linked but has sent no STATUS yet is not listed.
func (h *FleetHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.fleet.Snapshot()
	views := make([]telemetryView, 0, len(snap))
	for _, t := range snap {
		views = append(views, toView(t))
	}
	Ok(w, views)
}

// GetByID handles GET /fleet/{id} — the latest telemetry for one PLC.
func (h *FleetHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	plcID, ok := parsePlcID(w, r)
	if !ok {
		return
	}
	t, ok := h.fleet.Telemetry(plcID)
	if !ok {
		ErrNotFound(w, r)
		return
	}
	Ok(w, toView(t))
}

// commandRequest is the JSON body accepted by POST /fleet/{id}/command.
type commandRequest struct {
	Command  string  `json:"command"`
	BurnRate float64 `json:"burn_rate,omitempty"`
}

// Command handles POST /fleet/{id}/command — relays an operator RPS command
// to one PLC: scram, reset, enable, or burn_rate.
func (h *FleetHandler) Command(w http.ResponseWriter, r *http.Request) {
	plcID, ok := parsePlcID(w, r)
	if !ok {
		return
	}

	var req commandRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch req.Command {
	case "scram":
		err = h.core.SendCommand(plcID, rplc.RpsScram)
	case "reset":
		err = h.core.SendCommand(plcID, rplc.RpsReset)
	case "enable":
		err = h.core.SendCommand(plcID, rplc.RpsEnable)
	case "burn_rate":
		err = h.core.SendCommand(plcID, rplc.MekBurnRate, req.BurnRate)
	default:
		ErrBadRequest(w, r, "unknown command: "+req.Command)
		return
	}

	if err != nil {
		h.logger.Warn("command relay failed", zap.Uint32("plc_id", plcID), zap.Error(err))
		switch {
		case errors.Is(err, core.ErrPeerNotLinked):
			ErrNotFound(w, r)
		case errors.Is(err, core.ErrNoReplyAddress):
			ErrUnprocessable(w, r, err.Error())
		default:
			ErrInternal(w, r)
		}
		return
	}
	NoContent(w)
}

// rtuView is the JSON shape returned for one RTU gateway's advertised
// capability set.
type rtuView struct {
	Addr         string   `json:"addr"`
	Capabilities []string `json:"capabilities"`
	UpdatedAt    string   `json:"updated_at"`
}

// ListRTUs handles GET /rtus — the last advertised capability set for every
// RTU gateway that has sent an RTU_ADVERT.
func (h *FleetHandler) ListRTUs(w http.ResponseWriter, r *http.Request) {
	infos := h.fleet.RTUCapabilities()
	views := make([]rtuView, 0, len(infos))
	for _, info := range infos {
		caps := make([]string, len(info.Capability))
		for i, c := range info.Capability {
			caps[i] = c.String()
		}
		views = append(views, rtuView{
			Addr:         info.Addr.String(),
			Capabilities: caps,
			UpdatedAt:    info.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	Ok(w, views)
}

func parsePlcID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ErrBadRequest(w, r, "invalid plc id: "+raw)
		return 0, false
	}
	return uint32(id), true
}
