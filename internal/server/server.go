package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/textcamera/textcamera/internal/orchestrator"
	"github.com/textcamera/textcamera/internal/pipeline"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Camera is the part of orchestrator.Manager the server uses.
type Camera interface {
	Latest() (orchestrator.Frame, bool)
	Events() <-chan orchestrator.FrameEvent
	SetOrientation(o pipeline.Orientation)
	Orientation() pipeline.Orientation
	Stats() orchestrator.Stats
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type FrameMessage struct {
	Type        string `json:"type"`
	Seq         uint64 `json:"seq"`
	Cols        int    `json:"cols"`
	Rows        int    `json:"rows"`
	Orientation string `json:"orientation"`
	Text        string `json:"text"`
}

type OrientationMessage struct {
	Type        string `json:"type"`
	Orientation string `json:"orientation"`
	TraceID     string `json:"trace_id,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// FrameResponse is the JSON body of GET /api/frame.
type FrameResponse struct {
	Seq         uint64    `json:"seq"`
	Cols        int       `json:"cols"`
	Rows        int       `json:"rows"`
	Orientation string    `json:"orientation"`
	Lines       []string  `json:"lines"`
	At          time.Time `json:"at"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// client is one WebSocket connection's outgoing frame slot. Only the newest
// unsent frame is kept, and a single writer drains it, so a connection sees
// frames in sequence order and a slow one skips frames instead of queueing.
type client struct {
	frames chan FrameMessage
}

func newClient() *client {
	return &client{frames: make(chan FrameMessage, 1)}
}

// offer replaces any pending frame with msg. Called from the broadcast
// goroutine only.
func (c *client) offer(msg FrameMessage) {
	select {
	case c.frames <- msg:
		return
	default:
	}
	select {
	case <-c.frames:
	default:
	}
	select {
	case c.frames <- msg:
	default:
	}
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	cam   Camera
	mu    sync.RWMutex
	conns map[*websocket.Conn]*client
}

// New creates a server and starts broadcasting the camera's frames.
func New(cam Camera) *Server {
	s := &Server{
		cam:   cam,
		conns: make(map[*websocket.Conn]*client),
	}
	go s.broadcastFrames()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/frame.txt", s.handleFrameText)
	mux.HandleFunc("POST /api/orientation", s.handleOrientation)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func frameMessage(f orchestrator.Frame, o pipeline.Orientation) FrameMessage {
	return FrameMessage{
		Type:        "frame",
		Seq:         f.Seq,
		Cols:        f.Mosaic.Cols(),
		Rows:        f.Mosaic.Rows(),
		Orientation: o.String(),
		Text:        f.Mosaic.Text(),
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	baseCtx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Hold the lock while sending the current frame so a broadcast cannot
	// overtake it.
	s.mu.Lock()
	if f, ok := s.cam.Latest(); ok {
		if err := s.write(baseCtx, conn, frameMessage(f, s.cam.Orientation())); err != nil {
			s.mu.Unlock()
			log.Debug("websocket initial write error", "error", err)
			return
		}
	}
	c := newClient()
	s.conns[conn] = c
	s.mu.Unlock()

	go s.writeFrames(baseCtx, conn, c)

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	rl := &rateLimiter{}
	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = s.write(baseCtx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "orientation":
			var om OrientationMessage
			if err := json.Unmarshal(msg, &om); err != nil {
				continue
			}
			ctx := baseCtx
			if tc, ok := trace.ExtractFromJSON(msg); ok {
				ctx = trace.WithContext(ctx, tc)
			}
			o, err := pipeline.ParseOrientation(om.Orientation)
			if err != nil {
				_ = s.write(ctx, conn, ErrorMessage{Type: "error", Message: err.Error()})
				continue
			}
			s.cam.SetOrientation(o)
			trace.Logger(ctx).Info("orientation requested", "orientation", o.String())
			_ = s.write(ctx, conn, OrientationMessage{Type: "orientation", Orientation: o.String()})
		default:
			_ = s.write(baseCtx, conn, ErrorMessage{Type: "error", Message: "unknown message type " + base.Type})
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

func (s *Server) broadcastFrames() {
	for evt := range s.cam.Events() {
		msg := FrameMessage{
			Type:        "frame",
			Seq:         evt.Seq,
			Cols:        evt.Cols,
			Rows:        evt.Rows,
			Orientation: evt.Orientation.String(),
			Text:        evt.Text,
		}

		s.mu.RLock()
		for _, c := range s.conns {
			c.offer(msg)
		}
		s.mu.RUnlock()
	}
}

// writeFrames sends a connection's frames one at a time until ctx ends or a
// write fails.
func (s *Server) writeFrames(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.frames:
			if err := s.write(ctx, conn, msg); err != nil {
				trace.Logger(ctx).Debug("websocket write error", "seq", msg.Seq, "error", err)
				return
			}
		}
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f, ok := s.cam.Latest()
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no frame rendered yet"))
		return
	}
	writeJSON(w, http.StatusOK, FrameResponse{
		Seq:         f.Seq,
		Cols:        f.Mosaic.Cols(),
		Rows:        f.Mosaic.Rows(),
		Orientation: s.cam.Orientation().String(),
		Lines:       f.Mosaic.Lines(),
		At:          f.At,
	})
}

func (s *Server) handleFrameText(w http.ResponseWriter, r *http.Request) {
	f, ok := s.cam.Latest()
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no frame rendered yet"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, f.Mosaic.Text())
}

func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Orientation string `json:"orientation"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "invalid JSON body"))
		return
	}
	o, err := pipeline.ParseOrientation(req.Orientation)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.cam.SetOrientation(o)
	writeJSON(w, http.StatusOK, map[string]string{"orientation": o.String()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cam.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var httpStatus = map[apperrors.Code]int{
	apperrors.CodeInvalidArgument:    http.StatusBadRequest,
	apperrors.CodeNotFound:           http.StatusNotFound,
	apperrors.CodeCropTargetTooLarge: http.StatusUnprocessableEntity,
	apperrors.CodeUnavailable:        http.StatusServiceUnavailable,
	apperrors.CodeTimeout:            http.StatusGatewayTimeout,
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, ok := httpStatus[apperrors.CodeOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		trace.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	var ae *apperrors.AppError
	msg := err.Error()
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	writeJSON(w, status, map[string]string{
		"error": msg,
		"code":  apperrors.CodeOf(err).String(),
	})
}
