package stream

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lobsim/engine"
)

// Tick is the JSON wire shape pushed to every subscriber after an event.
type Tick struct {
	EventIdx int64             `json:"event_idx"`
	Snapshot engine.BookSnapshot `json:"snapshot"`
	Trades   []engine.Trade      `json:"trades,omitempty"`
}

// Publisher implements sim.Observer by broadcasting every tick to whatever
// websocket clients are currently connected. It is safe to attach to a
// Simulator whether or not any client has ever connected.
type Publisher struct {
	hub      *hub[Tick]
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewPublisher(log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		hub: newHub[Tick](),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// OnTick satisfies sim.Observer.
func (p *Publisher) OnTick(eventIdx int64, snapshot engine.BookSnapshot, trades []engine.Trade) {
	p.hub.Broadcast(Tick{EventIdx: eventIdx, Snapshot: snapshot, Trades: trades})
}

// ServeHTTP upgrades the connection and streams ticks to it until the
// client disconnects. Each connection gets its own buffered subscription so
// one slow reader cannot starve another.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := p.hub.Subscribe(64)
	defer p.hub.Unsubscribe(sub)

	for tick := range sub {
		payload, err := json.Marshal(tick)
		if err != nil {
			p.log.Error("marshal tick", zap.Error(err))
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
