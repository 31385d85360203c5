package session

import (
	"net/http"
	"time"

	"github.com/curbz/skytrace/internal/filterlang"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// subscription is one named query a subscribe-query client holds.
type subscription struct {
	id       string
	compiled *filterlang.Compiled[moving.Pilot]
}

// subQueryEvent is one emitted (subscription, pilot) event.
type subQueryEvent struct {
	SubscriptionID string       `json:"subscription_id"`
	Event          string       `json:"event"` // add | update | remove
	Pilot          moving.Pilot `json:"pilot"`
}

// subQueryMessage is the client's add/delete of a named subscription.
type subQueryMessage struct {
	Type  string `json:"type"` // add_subscription | delete_subscription
	ID    string `json:"id"`
	Query string `json:"query"`
}

// HandleSubscribeQuery is the websocket endpoint for the
// subscription-query stream: clients register (query, id) pairs and
// receive one event per matching subscription for every pilot add,
// flight-plan change, or removal.
func (s *Server) HandleSubscribeQuery(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("session: websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithFields(logrus.Fields{"remote": r.RemoteAddr, "stream": "subscribe-query"})
	log.Info("session: client connected")
	s.runSubQuerySession(conn, log)
	log.Info("session: client disconnected")
}

func (s *Server) runSubQuerySession(conn *websocket.Conn, log *logrus.Entry) {
	incoming := make(chan subQueryMessage, 100)
	go func() {
		defer close(incoming)
		for {
			var msg subQueryMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			incoming <- msg
		}
	}()

	subs := make(map[string]*subscription)
	prev := make(map[string]moving.Pilot)
	nextTickAt := time.Now()

	for {
		for {
			select {
			case msg, ok := <-incoming:
				if !ok {
					return
				}
				switch msg.Type {
				case "add_subscription":
					expr, err := filterlang.MakeExpr(msg.Query)
					if err != nil || expr == nil {
						log.WithError(err).WithField("id", msg.ID).Warn("session: bad subscription query")
						continue
					}
					compiled, err := filterlang.Compile(expr, moving.CompilePilotFilter)
					if err != nil {
						log.WithError(err).WithField("id", msg.ID).Warn("session: subscription compile failed")
						continue
					}
					subs[msg.ID] = &subscription{id: msg.ID, compiled: compiled}
				case "delete_subscription":
					delete(subs, msg.ID)
				}
				continue
			default:
			}
			break
		}

		if !time.Now().Before(nextTickAt) {
			events := diffForSubscriptions(s.manager.AllPilots(), prev, subs)
			for _, ev := range events {
				if err := conn.WriteJSON(ev); err != nil {
					log.WithError(err).Debug("session: write failed")
					return
				}
			}
			nextTickAt = time.Now().Add(s.cfg.TickInterval)
		}

		time.Sleep(s.cfg.SettleInterval)
	}
}

// diffForSubscriptions diffs the full pilot list against prev and
// evaluates every subscription on each add, flight-plan-change, or
// remove event, emitting one event per matching pair. prev is updated
// in place.
func diffForSubscriptions(current []moving.Pilot, prev map[string]moving.Pilot, subs map[string]*subscription) []subQueryEvent {
	var events []subQueryEvent
	emit := func(kind string, pilot moving.Pilot) {
		for _, sub := range subs {
			if sub.compiled.Evaluate(pilot) {
				events = append(events, subQueryEvent{SubscriptionID: sub.id, Event: kind, Pilot: pilot})
			}
		}
	}

	keys := make(map[string]bool, len(current))
	for _, pilot := range current {
		keys[pilot.Callsign] = true
		existing, ok := prev[pilot.Callsign]
		switch {
		case !ok:
			emit("add", pilot)
		case flightPlanChanged(existing, pilot):
			emit("update", pilot)
		}
		prev[pilot.Callsign] = pilot
	}
	for callsign, pilot := range prev {
		if !keys[callsign] {
			emit("remove", pilot)
			delete(prev, callsign)
		}
	}
	return events
}

func flightPlanChanged(a, b moving.Pilot) bool {
	if (a.FlightPlan == nil) != (b.FlightPlan == nil) {
		return true
	}
	return a.FlightPlan != nil && *a.FlightPlan != *b.FlightPlan
}
