package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledmatrix/internal/app"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/imageio"
	"github.com/coreman2200/ledmatrix/internal/layout"
	"github.com/coreman2200/ledmatrix/internal/matrix"
	"github.com/coreman2200/ledmatrix/internal/pattern"
	"github.com/coreman2200/ledmatrix/internal/text"
)

const (
	DefaultPushInterval = 250 * time.Millisecond
	MaxUploadBytes      = 4 << 20
)

// Server is the HTTP and websocket control surface. Every mutation is
// validated here and then handed to the producer, which applies it between
// frames.
type Server struct {
	Producer *app.Producer
	Feed     *diag.Feed
	Driver   string

	// PushInterval paces the /ws status stream.
	PushInterval time.Duration

	startTime time.Time
	upgrader  websocket.Upgrader
}

func NewServer(p *app.Producer, feed *diag.Feed, driver string) *Server {
	return &Server{
		Producer:     p,
		Feed:         feed,
		Driver:       driver,
		PushInterval: DefaultPushInterval,
		startTime:    time.Now(),
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler routes every endpoint behind the CORS wrapper.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.HandleState)
	mux.HandleFunc("POST /api/text", s.HandleText)
	mux.HandleFunc("POST /api/images", s.HandleImages)
	mux.HandleFunc("POST /api/images/upload", s.HandleUpload)
	mux.HandleFunc("POST /api/brightness", s.HandleBrightness)
	mux.HandleFunc("POST /api/mode", s.HandleMode)
	mux.HandleFunc("POST /api/pattern", s.HandlePattern)
	mux.HandleFunc("/ws", s.HandleStatusWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Producer.Status())
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.Producer.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_s": time.Since(s.startTime).Seconds(),
		"frames":   st.Frames,
		"driver":   s.Driver,
	})
}

// lineUpdate is a validated change to one text line. Nil fields are left
// alone.
type lineUpdate struct {
	text     *string
	mode     *text.Mode
	duration *time.Duration
	loop     *bool
}

func parseLine(p params, prefix string) (lineUpdate, error) {
	var u lineUpdate
	if v, ok := p[prefix+"Text"]; ok {
		u.text = &v
	}
	if v, ok := p[prefix+"Mode"]; ok {
		m, err := text.ParseMode(v)
		if err != nil {
			return u, err
		}
		u.mode = &m
	}
	if _, ok := p[prefix+"FrameDuration"]; ok {
		d, err := p.millis(prefix + "FrameDuration")
		if err != nil {
			return u, err
		}
		u.duration = &d
	}
	if _, ok := p[prefix+"Loop"]; ok {
		b, err := p.boolean(prefix + "Loop")
		if err != nil {
			return u, err
		}
		u.loop = &b
	}
	return u, nil
}

// apply sets the mode first so that its default duration can be overridden
// by an explicit one in the same request.
func (u lineUpdate) apply(a *text.Animator) {
	if u.text != nil {
		a.SetText(*u.text)
	}
	if u.mode != nil {
		a.SetMode(*u.mode)
		a.SetFrameDuration(text.DefaultDuration(*u.mode))
	}
	if u.duration != nil {
		a.SetFrameDuration(*u.duration)
	}
	if u.loop != nil {
		a.SetLooping(*u.loop)
	}
}

func (s *Server) HandleText(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	top, err := parseLine(p, "top")
	if err != nil {
		badRequest(w, err)
		return
	}
	bottom, err := parseLine(p, "bottom")
	if err != nil {
		badRequest(w, err)
		return
	}
	var tl *layout.TextLayout
	if v, ok := p["layout"]; ok {
		l, err := layout.ParseTextLayout(v)
		if err != nil {
			badRequest(w, err)
			return
		}
		tl = &l
	}
	s.mutate(w, r, func(sc *app.Scene) {
		top.apply(sc.Top)
		bottom.apply(sc.Bottom)
		if tl != nil {
			sc.Layout = *tl
		}
	})
}

func (s *Server) HandleImages(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var frames []matrix.Image
	_, setFrames := p["frames"]
	if setFrames {
		if frames, err = matrix.ParseHexList(p["frames"]); err != nil {
			badRequest(w, err)
			return
		}
	}
	var dur *time.Duration
	if _, ok := p["frameDuration"]; ok {
		d, err := p.millis("frameDuration")
		if err != nil {
			badRequest(w, err)
			return
		}
		dur = &d
	}
	var loop *bool
	if _, ok := p["loop"]; ok {
		b, err := p.boolean("loop")
		if err != nil {
			badRequest(w, err)
			return
		}
		loop = &b
	}
	s.mutate(w, r, func(sc *app.Scene) {
		if setFrames {
			if len(frames) == 0 {
				sc.Images.ClearFrames()
			} else {
				sc.Images.SetFrames(frames)
			}
		}
		if dur != nil {
			sc.Images.SetFrameDuration(*dur)
		}
		if loop != nil {
			sc.Images.SetLooping(*loop)
		}
	})
}

func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		badRequest(w, err)
		return
	}
	p := formParams(r)
	opt := imageio.DefaultOptions()
	if _, ok := p["threshold"]; ok {
		n, err := strconv.Atoi(p["threshold"])
		if err != nil || n < 0 || n > 255 {
			badRequest(w, fmt.Errorf("threshold %q: want 0..255", p["threshold"]))
			return
		}
		opt.Threshold = uint8(n)
	}
	if _, ok := p["invert"]; ok {
		b, err := p.boolean("invert")
		if err != nil {
			badRequest(w, err)
			return
		}
		opt.Invert = b
	}
	appendFrames := false
	if _, ok := p["append"]; ok {
		b, err := p.boolean("append")
		if err != nil {
			badRequest(w, err)
			return
		}
		appendFrames = b
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		badRequest(w, err)
		return
	}
	defer f.Close()
	frames, err := imageio.Decode(f, opt)
	if err != nil {
		s.Feed.Publish(diag.Diagnostic{
			Severity: diag.Warn,
			Code:     "UPLOAD.REJECTED",
			Summary:  "Image could not be decoded",
			Detail:   err.Error(),
			Evidence: map[string]any{"filename": hdr.Filename, "size": hdr.Size},
		})
		badRequest(w, err)
		return
	}
	log.Info().Str("file", hdr.Filename).Int("frames", len(frames)).Msg("image uploaded")
	s.mutate(w, r, func(sc *app.Scene) {
		if appendFrames {
			frames = append(sc.Images.Frames(), frames...)
		}
		sc.Images.SetFrames(frames)
	})
}

func (s *Server) HandleBrightness(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	v, err := strconv.ParseFloat(p["value"], 64)
	if err != nil {
		badRequest(w, fmt.Errorf("value %q: %w", p["value"], err))
		return
	}
	s.mutate(w, r, func(sc *app.Scene) { sc.SetBrightness(v) })
}

func (s *Server) HandleMode(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	m, err := layout.ParseDisplayMode(p["mode"])
	if err != nil {
		badRequest(w, err)
		return
	}
	s.mutate(w, r, func(sc *app.Scene) { sc.Mode = m })
}

func (s *Server) HandlePattern(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	k, err := pattern.Parse(p["name"])
	if err != nil {
		s.Feed.Publish(diag.Diagnostic{
			Severity: diag.Warn, Code: "PATTERN.UNKNOWN", Summary: "Unknown pattern name",
			Evidence: map[string]any{"name": p["name"]},
		})
		badRequest(w, err)
		return
	}
	frames, err := pattern.Frames(k)
	if err != nil {
		badRequest(w, err)
		return
	}
	s.Feed.Publish(diag.Diagnostic{Severity: diag.Info, Code: "PATTERN.RUNNING", Summary: "Running pattern", Detail: string(k)})
	s.mutate(w, r, func(sc *app.Scene) {
		sc.Images.SetFrames(frames)
		sc.Mode = layout.ImageMode
	})
}

// mutate runs fn on the producer and answers with the resulting state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*app.Scene)) {
	if err := s.Producer.Do(r.Context(), fn); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("control request dropped")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.Producer.Status())
}

// HandleStatusWS streams the state to the client until it goes away.
func (s *Server) HandleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	gone := readUntilClosed(conn)

	t := time.NewTicker(s.PushInterval)
	defer t.Stop()
	for {
		b, _ := json.Marshal(s.Producer.Status())
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write status")
			return
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-t.C:
		}
	}
}

// HandleDiagWS replays recent diagnostics and then follows the feed.
func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	ch, cancel := s.Feed.Subscribe(16)
	defer cancel()
	gone := readUntilClosed(conn)

	send := func(d diag.Diagnostic) bool {
		b, _ := json.Marshal(d)
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		return conn.WriteMessage(websocket.TextMessage, b) == nil
	}
	for _, d := range s.Feed.Recent() {
		if !send(d) {
			return
		}
	}
	for {
		select {
		case <-gone:
			return
		case d := <-ch:
			if !send(d) {
				return
			}
		}
	}
}

func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return gone
}

// params holds request fields as strings regardless of how they were sent.
type params map[string]string

var errNotJSONObject = errors.New("body must be a JSON object")

func readParams(r *http.Request) (params, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return formParams(r), nil
	}
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNotJSONObject
	}
	p := params{}
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			p[k] = v
		case nil:
		case bool:
			p[k] = strconv.FormatBool(v)
		case float64:
			p[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case []any:
			parts := make([]string, 0, len(v))
			for _, e := range v {
				parts = append(parts, fmt.Sprint(e))
			}
			p[k] = strings.Join(parts, ",")
		default:
			return nil, fmt.Errorf("field %q: unsupported value", k)
		}
	}
	return p, nil
}

func formParams(r *http.Request) params {
	p := params{}
	for k, vs := range r.Form {
		if len(vs) > 0 {
			p[k] = vs[0]
		}
	}
	return p
}

// maxMillis is the longest duration in milliseconds a time.Duration holds.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// millis parses a duration in milliseconds, clamped to [0, maxMillis].
func (p params) millis(key string) (time.Duration, error) {
	n, err := strconv.ParseInt(p[key], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, p[key], err)
	}
	if n < 0 {
		n = 0
	}
	if n > maxMillis {
		n = maxMillis
	}
	return time.Duration(n) * time.Millisecond, nil
}

func (p params) boolean(key string) (bool, error) {
	b, err := strconv.ParseBool(p[key])
	if err != nil {
		return false, fmt.Errorf("%s %q: %w", key, p[key], err)
	}
	return b, nil
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
