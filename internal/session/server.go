// Package session serves the long-lived viewer streams over
// websockets: each connection owns its viewport, filter, subscription
// set, and retained diff state, and receives add/update/delete deltas
// at a bounded cadence.
package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/curbz/skytrace/internal/config"
	"github.com/curbz/skytrace/internal/filterlang"
	"github.com/curbz/skytrace/internal/fixed"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/manager"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// minZoom is the zoom level below which the viewport may wrap the
// whole world on screen, so bounds checks are skipped and every object
// is considered.
const minZoom = 3.0

// Server upgrades viewer connections and runs their session loops.
type Server struct {
	manager  *manager.Manager
	cfg      config.SessionConfig
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewServer builds a session server over the manager's live state.
func NewServer(m *manager.Manager, cfg config.SessionConfig, log *logrus.Logger) *Server {
	return &Server{
		manager: m,
		cfg:     cfg,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// clientMessage is the tagged union of session setting updates.
type clientMessage struct {
	Type     string  `json:"type"` // filter | bounds | show_wx | subscribe | unsubscribe
	Filter   string  `json:"filter"`
	Bounds   *bounds `json:"bounds"`
	Value    bool    `json:"value"`
	Callsign string  `json:"callsign"`
}

type bounds struct {
	SWLat float64 `json:"sw_lat"`
	SWLng float64 `json:"sw_lng"`
	NELat float64 `json:"ne_lat"`
	NELng float64 `json:"ne_lng"`
	Zoom  float64 `json:"zoom"`
}

func (b *bounds) rect() geo.Rect {
	return geo.Rect{
		SW: geo.Point{Lat: b.SWLat, Lng: b.SWLng}.Clamp(),
		NE: geo.Point{Lat: b.NELat, Lng: b.NELng}.Clamp(),
	}
}

// serverMessage carries one delta batch for one entity kind.
type serverMessage struct {
	Object     string          `json:"object"`      // pilot | airport | fir
	UpdateType string          `json:"update_type"` // set | delete
	Pilots     []moving.Pilot  `json:"pilots,omitempty"`
	Airports   []fixed.Airport `json:"airports,omitempty"`
	FIRs       []fixed.FIR     `json:"firs,omitempty"`
}

// HandleMapUpdates is the websocket endpoint for the map-updates
// stream.
func (s *Server) HandleMapUpdates(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("session: websocket upgrade failed")
		return
	}
	defer conn.Close()

	id := uuid.NewString()[:8]
	log := s.log.WithFields(logrus.Fields{"session": id, "remote": r.RemoteAddr})
	log.Info("session: client connected")
	s.runMapSession(conn, log)
	log.Info("session: client disconnected")
}

// readLoop feeds decoded client messages into out and closes it when
// the connection dies, which is how the session observes disconnect.
func (s *Server) readLoop(conn *websocket.Conn, out chan<- clientMessage, log *logrus.Entry) {
	defer close(out)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.WithError(err).Warn("session: invalid client message")
			continue
		}
		out <- msg
	}
}

type sessionState struct {
	bounds        *bounds
	filter        *filterlang.Compiled[moving.Pilot]
	showWx        bool
	subscriptions map[string]bool

	prevPilots   map[string]moving.Pilot
	prevAirports map[string]fixed.Airport
	prevFIRs     map[string]fixed.FIR
}

func newSessionState() *sessionState {
	return &sessionState{
		subscriptions: make(map[string]bool),
		prevPilots:    make(map[string]moving.Pilot),
		prevAirports:  make(map[string]fixed.Airport),
		prevFIRs:      make(map[string]fixed.FIR),
	}
}

// apply folds one setting message into the session state. Every
// accepted message forces the next tick to run immediately.
func (st *sessionState) apply(msg clientMessage, log *logrus.Entry) bool {
	switch msg.Type {
	case "filter":
		if msg.Filter == "" {
			st.filter = nil
			return true
		}
		expr, err := filterlang.MakeExpr(msg.Filter)
		if err != nil {
			log.WithError(err).Warn("session: bad filter expression, ignoring")
			st.filter = nil
			return true
		}
		compiled, err := filterlang.Compile(expr, moving.CompilePilotFilter)
		if err != nil {
			log.WithError(err).Warn("session: filter compile failed, ignoring")
			st.filter = nil
			return true
		}
		st.filter = compiled
		return true
	case "bounds":
		if msg.Bounds != nil {
			st.bounds = msg.Bounds
		}
		return true
	case "show_wx":
		st.showWx = msg.Value
		return true
	case "subscribe":
		st.subscriptions[msg.Callsign] = true
		return true
	case "unsubscribe":
		delete(st.subscriptions, msg.Callsign)
		return true
	default:
		log.WithField("type", msg.Type).Warn("session: unknown message type")
		return false
	}
}

func (s *Server) runMapSession(conn *websocket.Conn, log *logrus.Entry) {
	incoming := make(chan clientMessage, 100)
	go s.readLoop(conn, incoming, log)

	st := newSessionState()
	nextUpdateAt := time.Now()

	for {
		// Non-blocking drain of setting updates.
		for {
			select {
			case msg, ok := <-incoming:
				if !ok {
					return
				}
				if st.apply(msg, log) {
					nextUpdateAt = time.Now()
				}
				continue
			default:
			}
			break
		}

		if st.bounds != nil && !time.Now().Before(nextUpdateAt) {
			if err := s.emitTick(conn, st); err != nil {
				log.WithError(err).Debug("session: write failed")
				return
			}
			nextUpdateAt = time.Now().Add(s.cfg.TickInterval)
		}

		time.Sleep(s.cfg.SettleInterval)
	}
}

// emitTick computes and sends this tick's deltas for all three entity
// kinds: the set batch first, then the delete batch, per kind.
func (s *Server) emitTick(conn *websocket.Conn, st *sessionState) error {
	noBounds := st.bounds.Zoom < minZoom
	rect := st.bounds.rect().Scale(s.cfg.MapWinMultiplier)

	var pilots []moving.Pilot
	if noBounds {
		pilots = s.manager.AllPilots()
	} else {
		pilots = s.manager.Pilots(rect, st.subscriptions)
	}
	if st.filter != nil {
		filtered := pilots[:0]
		for _, p := range pilots {
			if st.subscriptions[p.Callsign] || st.filter.Evaluate(p) {
				filtered = append(filtered, p)
			}
		}
		pilots = filtered
	}
	pilotsSet, pilotsDel := CalcPilots(pilots, st.prevPilots)
	if err := sendBatches(conn, "pilot", pilotsSet, pilotsDel, func(m *serverMessage, batch []moving.Pilot) {
		m.Pilots = batch
	}); err != nil {
		return err
	}

	var airports []fixed.Airport
	if noBounds {
		airports = s.manager.AllAirports(st.showWx)
	} else {
		airports = s.manager.Airports(rect, st.showWx)
	}
	arptsSet, arptsDel := CalcAirports(airports, st.prevAirports)
	if err := sendBatches(conn, "airport", arptsSet, arptsDel, func(m *serverMessage, batch []fixed.Airport) {
		m.Airports = batch
	}); err != nil {
		return err
	}

	var firs []fixed.FIR
	if noBounds {
		firs = s.manager.AllFIRs()
	} else {
		firs = s.manager.FIRs(rect)
	}
	firsSet, firsDel := CalcFIRs(firs, st.prevFIRs)
	return sendBatches(conn, "fir", firsSet, firsDel, func(m *serverMessage, batch []fixed.FIR) {
		m.FIRs = batch
	})
}

// sendBatches writes the set batch then the delete batch for one
// entity kind, skipping empty batches.
func sendBatches[T any](conn *websocket.Conn, object string, set, del []T, fill func(*serverMessage, []T)) error {
	if len(set) > 0 {
		msg := serverMessage{Object: object, UpdateType: "set"}
		fill(&msg, set)
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	if len(del) > 0 {
		msg := serverMessage{Object: object, UpdateType: "delete"}
		fill(&msg, del)
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}
