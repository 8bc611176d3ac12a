// Package live pushes survey events to websocket subscribers. Clients
// subscribe to one survey; the hub fans each published event out to every
// subscriber of that survey.
package live

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// MessageType identifies the kind of event carried by a Message.
type MessageType string

const (
	MsgResponseSubmitted MessageType = "response_submitted"
	MsgResponseDeleted   MessageType = "response_deleted"
	MsgSurveyClosed      MessageType = "survey_closed"
)

// Message is the websocket envelope.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubmissionEvent is the payload of response_submitted and
// response_deleted messages.
type SubmissionEvent struct {
	SurveyID       string `json:"surveyId"`
	ResponseID     string `json:"responseId"`
	TotalResponses int    `json:"totalResponses"`
}

// Publisher is the write side used by services.
type Publisher interface {
	Publish(surveyID string, msgType MessageType, payload any)
}

// Connection is one subscriber.
type Connection struct {
	SurveyID string
	Send     chan []byte
}

type broadcastMessage struct {
	surveyID string
	data     []byte
}

// Hub tracks subscribers per survey.
type Hub struct {
	conns map[string]map[*Connection]struct{}
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan broadcastMessage
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a Hub and starts its event loop. Call Close to stop it.
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan broadcastMessage, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for _, set := range h.conns {
				for c := range set {
					close(c.Send)
				}
			}
			h.conns = map[string]map[*Connection]struct{}{}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.conns[c.SurveyID] == nil {
				h.conns[c.SurveyID] = make(map[*Connection]struct{})
			}
			h.conns[c.SurveyID][c] = struct{}{}
			h.mu.Unlock()
			log.Debug().Str("survey_id", c.SurveyID).Msg("live subscriber connected")

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.conns[m.surveyID] {
				select {
				case c.Send <- m.data:
				default:
					// Slow consumer: drop it rather than stall the hub.
					log.Warn().Str("survey_id", c.SurveyID).Msg("live subscriber dropped: send buffer full")
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Connection) {
	set, ok := h.conns[c.SurveyID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.conns, c.SurveyID)
	}
}

// Register adds a subscriber. It is a no-op after Close.
func (h *Hub) Register(c *Connection) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(c *Connection) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Subscribers returns the number of live subscribers of surveyID.
func (h *Hub) Subscribers(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[surveyID])
}

// Publish sends an event to every subscriber of surveyID. It never blocks
// the caller for long: when the hub is saturated the event is dropped.
func (h *Hub) Publish(surveyID string, msgType MessageType, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("live payload marshal failed")
		return
	}
	data, _ := json.Marshal(&Message{Type: msgType, Payload: raw})
	select {
	case h.broadcast <- broadcastMessage{surveyID: surveyID, data: data}:
	case <-h.done:
	default:
		log.Warn().Str("survey_id", surveyID).Msg("live broadcast queue full; event dropped")
	}
}

// Close stops the hub and closes every subscriber's send channel.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(string, MessageType, any) {}
