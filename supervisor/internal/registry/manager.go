// Package registry maintains the Supervisor's in-memory view of the fleet:
// every PLC currently linked, its latest STATUS telemetry, and the
// underlying shared/session.Session backing the watchdog for each one, plus
// the last capability advert from each RTU gateway (which has no session). It is modeled directly on agentmanager.Manager from the teacher: a
// mutex-protected map keyed by peer ID, with register/deregister-shaped
// accessors and snapshot-returning reads so callers never hold the lock
// while doing slow work (sending, logging, publishing to the fleet feed).
//
// Unlike the PLC side, which holds exactly one Session, the Supervisor holds
// one per connected peer — this package is the many-peer counterpart of
// plc/internal/comms, built on the same shared/session primitives.
package registry

import (
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/shared/rtu"
	"github.com/reactorfleet/scada-core/shared/session"
)

// PlcTelemetry is the latest STATUS snapshot received from one PLC, plus
// enough addressing information to route a command back to it.
type PlcTelemetry struct {
	PlcID     uint32
	Addr      net.Addr
	ReplyPort uint16
	Scram     bool
	IssStatus uint32
	UpdatedAt time.Time
}

// Fleet is the Supervisor's registry of linked PLCs. peerID is always
// "plc-" followed by the decimal RPLC plc_id — the wire protocol addresses
// nodes by that field, not by transport address, since UDP source ports can
// change across reconnects.
type Fleet struct {
	mu       sync.RWMutex
	sessions *session.Registry
	status   map[string]PlcTelemetry
	rtuCaps  map[string]RTUAdvertInfo
	logger   *zap.Logger
}

// RTUAdvertInfo is the last RTU_ADVERT received from one RTU gateway,
// addressed by its transport address since RTU gateways have no plc_id of
// their own — they front MODBUS-style peripherals, not a reactor PLC.
type RTUAdvertInfo struct {
	Addr       net.Addr
	Capability rtu.Advert
	UpdatedAt  time.Time
}

// New creates an empty Fleet registry.
func New(logger *zap.Logger) *Fleet {
	return &Fleet{
		sessions: session.NewRegistry(logger),
		status:   make(map[string]PlcTelemetry),
		rtuCaps:  make(map[string]RTUAdvertInfo),
		logger:   logger.Named("registry"),
	}
}

func peerKey(plcID uint32) string {
	return fmt.Sprintf("plc-%d", plcID)
}

// Link records a successful LINK_REQ handshake for plcID, (re)creating its
// session with a fresh watchdog. Mirrors agentmanager.Manager.Register's
// replace-on-duplicate behavior.
func (f *Fleet) Link(plcID uint32, watchdogDuration time.Duration, now time.Time) *session.Session {
	return f.sessions.Link(peerKey(plcID), watchdogDuration, now)
}

// Touch checks seq against plcID's sequence high-water mark and, if it is
// newer, advances the mark and feeds the watchdog. It returns false when
// plcID has no session or seq is not newer than the last one accepted.
func (f *Fleet) Touch(plcID uint32, seq uint32, now time.Time) bool {
	sess, ok := f.sessions.Get(peerKey(plcID))
	if !ok {
		return false
	}
	if !sess.AcceptSeq(seq) {
		return false
	}
	sess.Touch(now, time.Time{})
	return true
}

// IsLinked reports whether plcID currently has a linked session.
func (f *Fleet) IsLinked(plcID uint32) bool {
	return f.sessions.IsLinked(peerKey(plcID))
}

// Unlink tears down plcID's session and discards its telemetry. Called on
// CLOSE; sessions whose watchdog expired are removed by ReapExpired.
func (f *Fleet) Unlink(plcID uint32) {
	f.sessions.Unlink(peerKey(plcID))
	f.mu.Lock()
	delete(f.status, peerKey(plcID))
	f.mu.Unlock()
}

// RecordStatus stores the latest STATUS telemetry for plcID, addressable at
// addr/replyPort for outbound RPS commands.
func (f *Fleet) RecordStatus(plcID uint32, addr net.Addr, replyPort uint16, scram bool, issStatus uint32, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[peerKey(plcID)] = PlcTelemetry{
		PlcID:     plcID,
		Addr:      addr,
		ReplyPort: replyPort,
		Scram:     scram,
		IssStatus: issStatus,
		UpdatedAt: now,
	}
}

// Telemetry returns the last recorded STATUS for plcID, if any.
func (f *Fleet) Telemetry(plcID uint32) (PlcTelemetry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.status[peerKey(plcID)]
	return t, ok
}

// Snapshot returns every currently tracked PLC's telemetry, safe to range
// over without holding the registry's lock. Used by supervisor/internal/api's
// /fleet endpoint and supervisor/housekeep's periodic broadcast.
func (f *Fleet) Snapshot() []PlcTelemetry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]PlcTelemetry, 0, len(f.status))
	for _, t := range f.status {
		out = append(out, t)
	}
	return out
}

// ReapExpired removes every session whose watchdog has fired without an
// explicit unlink, returning the plc_ids reaped. supervisor/housekeep calls
// it periodically; nothing else on the Supervisor checks these watchdogs,
// so this sweep is how an expired session is detected.
func (f *Fleet) ReapExpired(now time.Time) []uint32 {
	expired := f.sessions.ReapExpired(now)
	if len(expired) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint32, 0, len(expired))
	for _, peerID := range expired {
		var id uint32
		if _, err := fmt.Sscanf(peerID, "plc-%d", &id); err == nil {
			ids = append(ids, id)
			delete(f.status, peerID)
		}
	}
	return ids
}

// Count returns the number of currently linked PLCs.
func (f *Fleet) Count() int {
	return f.sessions.Count()
}

// RecordRTUAdvert stores the latest RTU_ADVERT capability set received from
// addr, replacing whatever was previously recorded for that gateway.
func (f *Fleet) RecordRTUAdvert(addr net.Addr, cap rtu.Advert, now time.Time) {
	if addr == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rtuCaps[addr.String()] = RTUAdvertInfo{Addr: addr, Capability: cap, UpdatedAt: now}
}

// RTUCapabilities returns a snapshot of every RTU gateway's last advertised
// capability set, safe to range over without holding the registry's lock.
func (f *Fleet) RTUCapabilities() []RTUAdvertInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RTUAdvertInfo, 0, len(f.rtuCaps))
	for _, info := range f.rtuCaps {
		out = append(out, info)
	}
	return out
}
