package http

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/app"
	"ai-voice-agent-service/internal/service/memory"
	"ai-voice-agent-service/internal/service/session"
)

// StreamPath is where the telephony layer opens the media stream.
const StreamPath = "/voice/stream"

// NewRouter constructs the HTTP router for the service. stream serves the
// media stream websocket.
func NewRouter(application *app.Application, stream http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if application.Pipeline == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("starting"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Telephony
	r.Post("/voice/incoming", incomingCall(application))
	r.Handle(StreamPath, stream)

	// Monitoring
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, application.Status())
		})
		r.Get("/sessions", func(w http.ResponseWriter, _ *http.Request) {
			sessions := application.Registry.List()
			writeJSON(w, http.StatusOK, map[string]any{
				"count":    len(sessions),
				"sessions": sessions,
			})
		})
		r.Get("/sessions/{id}", sessionDetail(application))
		r.Post("/sessions/{id}/memory/clear", clearSessionMemory(application))
		r.Post("/cleanup", cleanup(application))
		r.Post("/cache/clear", func(w http.ResponseWriter, _ *http.Request) {
			n := application.Cache.Clear()
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"cleared": n,
			})
		})
	})

	return r
}

type sessionDetailResponse struct {
	Session      session.Summary `json:"session"`
	Conversation memory.Export   `json:"conversation"`
	LastMessage  *memory.Turn    `json:"lastMessage,omitempty"`
}

// sessionDetail returns one session with its conversation. The history can
// be narrowed with ?q=<text> (case-insensitive search) or ?recent=<n>.
func sessionDetail(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := application.Registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
			return
		}
		mem := s.Memory()
		resp := sessionDetailResponse{
			Session:      s.Summary(),
			Conversation: mem.Export(),
		}
		if last, ok := mem.Last(); ok {
			resp.LastMessage = &last
		}

		query := r.URL.Query()
		if q := query.Get("q"); q != "" {
			resp.Conversation.History = mem.Search(q)
		} else if n, err := strconv.Atoi(query.Get("recent")); err == nil && n > 0 {
			resp.Conversation.History = mem.Recent(n)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func clearSessionMemory(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := application.Registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"cleared": s.Memory().Clear(),
		})
	}
}

type cleanupRequest struct {
	// MaxAge is in milliseconds.
	MaxAge int64 `json:"maxAge"`
}

type cleanupResponse struct {
	Success bool   `json:"success"`
	Cleared int    `json:"cleared"`
	Message string `json:"message"`
}

func cleanup(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxAge := application.Cfg.Session.MaxAge

		var req cleanupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.MaxAge > 0 {
			maxAge = time.Duration(req.MaxAge) * time.Millisecond
		}

		n := application.Sweep(maxAge)
		writeJSON(w, http.StatusOK, cleanupResponse{
			Success: true,
			Cleared: n,
			Message: fmt.Sprintf("Cleared %d old sessions", n),
		})
	}
}

// TwiML documents returned to the telephony webhook.
type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     *twimlSay     `xml:"Say,omitempty"`
	Connect *twimlConnect `xml:"Connect,omitempty"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func incomingCall(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			log.Warn().Err(err).Msg("Failed to parse incoming call form")
		}
		callSid := r.PostFormValue("CallSid")
		from := r.PostFormValue("From")

		host := streamHost(r, application.Cfg.Service.PublicHost)
		log.Info().
			Str("callSid", callSid).
			Str("from", from).
			Str("host", host).
			Msg("Incoming call")

		doc := twimlResponse{
			Say: &twimlSay{Voice: "alice", Text: application.Cfg.Service.Greeting},
			Connect: &twimlConnect{Stream: twimlStream{
				URL: "wss://" + host + StreamPath,
				Parameters: []twimlParameter{
					{Name: "callSid", Value: callSid},
					{Name: "from", Value: from},
				},
			}},
		}

		out, err := xml.Marshal(doc)
		if err != nil {
			http.Error(w, "failed to render TwiML", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(xml.Header))
		_, _ = w.Write(out)
	}
}

// streamHost picks the public host for the stream URL: the forwarded host,
// then the configured public host, then the request host.
func streamHost(r *http.Request, publicHost string) string {
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if publicHost != "" {
		return publicHost
	}
	return r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}
