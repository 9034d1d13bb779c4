package media

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/service/call"
)

// Config tunes the websocket transport.
type Config struct {
	ReadLimit    int64
	WriteTimeout time.Duration
	// QueueSize bounds inbound frames read ahead of the call handler.
	QueueSize int
}

// DefaultConfig returns transport defaults sized for 20 ms mu-law frames.
func DefaultConfig() Config {
	return Config{
		ReadLimit:    64 * 1024,
		WriteTimeout: 5 * time.Second,
		QueueSize:    256,
	}
}

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
}

// Sender writes outbound frames for one stream. Writes are serialized, so a
// reply's media frame and its mark are never interleaved with another write.
type Sender struct {
	mu           sync.Mutex
	ws           wsWriter
	streamSid    string
	writeTimeout time.Duration
}

// NewSender creates a sender over ws.
func NewSender(ws wsWriter, writeTimeout time.Duration) *Sender {
	return &Sender{ws: ws, writeTimeout: writeTimeout}
}

// SetStreamID sets the stream id stamped on outbound frames.
func (s *Sender) SetStreamID(streamSid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamSid = streamSid
}

// SendAudio sends audio as a single media frame.
func (s *Sender) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := EncodeMedia(s.streamSid, audio)
	if err != nil {
		return err
	}
	return s.write(data)
}

// SendMark sends a named mark frame.
func (s *Sender) SendMark(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := EncodeMark(s.streamSid, name)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Sender) write(data []byte) error {
	if s.writeTimeout > 0 {
		if err := s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

// Server upgrades media stream requests and runs one call handler per connection.
type Server struct {
	deps     call.Deps
	cfg      Config
	upgrader websocket.Upgrader
}

// NewServer creates a media stream server.
func NewServer(deps call.Deps, cfg Config) *Server {
	return &Server{
		deps: deps,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("Media stream upgrade failed")
		return
	}
	defer conn.Close()

	if s.cfg.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.ReadLimit)
	}

	log.Info().Str("remoteAddr", r.RemoteAddr).Msg("Media stream connected")

	ctx := context.WithoutCancel(r.Context())
	sender := NewSender(conn, s.cfg.WriteTimeout)
	handler := call.NewHandler(s.deps, sender)
	defer handler.Close(ctx)

	frames, done := s.readLoop(conn)
	defer close(done)

	for data := range frames {
		ev, err := Decode(data)
		if err != nil {
			reason := call.AnomalyMalformed
			if errors.Is(err, ErrUnknownEvent) {
				reason = call.AnomalyUnknownEvent
			}
			handler.Anomaly(reason, err)
			continue
		}
		handler.HandleEvent(ctx, ev)
		// Outbound frames follow the accepted session, not a rejected start.
		if ev.Kind == call.EventStart {
			if sess := handler.Session(); sess != nil {
				sender.SetStreamID(sess.StreamID())
			}
		}
		if handler.State() == call.StateClosed {
			return
		}
	}
}

// readLoop reads text frames in order until the connection fails or done is
// closed. The returned channel is closed when reading stops.
func (s *Server) readLoop(conn *websocket.Conn) (<-chan []byte, chan struct{}) {
	size := s.cfg.QueueSize
	if size <= 0 {
		size = DefaultConfig().QueueSize
	}
	frames := make(chan []byte, size)
	done := make(chan struct{})

	go func() {
		defer close(frames)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Msg("Media stream read failed")
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			select {
			case frames <- data:
			case <-done:
				return
			}
		}
	}()
	return frames, done
}
