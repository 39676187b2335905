package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rzbill/cmdlog/internal/archive"
	"github.com/rzbill/cmdlog/internal/chardev"
	"github.com/rzbill/cmdlog/internal/filter"
	"github.com/rzbill/cmdlog/internal/runtime"
	"github.com/rzbill/cmdlog/pkg/log"
)

// Options configures the admin server.
type Options struct {
	Logger log.Logger
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

// Server is the read-mostly admin surface over a Runtime.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger log.Logger
}

func New(rt *runtime.Runtime, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, logger: logger, srv: &http.Server{Handler: cors(mux), ReadHeaderTimeout: 5 * time.Second}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/log", s.handleLog)
	mux.HandleFunc("/v1/entries", s.handleEntries)
	mux.HandleFunc("/v1/read", s.handleRead)
	mux.HandleFunc("/v1/archive", s.handleArchive)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	return s
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close stops the server immediately.
func (s *Server) Close() {
	_ = s.srv.Close()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func onlyGET(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLog streams the whole logical content.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	content, err := s.rt.Store().ReadAll(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(content)
}

type entryView struct {
	Index     int    `json:"index"`
	Size      int    `json:"size"`
	Text      string `json:"text"`
	Timestamp bool   `json:"timestamp,omitempty"`
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := s.rt.Store().Entries(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	out := make([]entryView, 0, len(entries))
	for i, e := range entries {
		subj := filter.Subject{Index: i, Data: e.Data}
		if !f.Match(subj) {
			continue
		}
		out = append(out, entryView{Index: i, Size: len(e.Data), Text: string(e.Data), Timestamp: filter.IsTimestamp(e.Data)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleRead positions a device handle with SEEK_TO and returns everything
// from there to the end.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	cmd, err := parseUint32(q.Get("write_cmd"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	off, err := parseUint32(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	f := chardev.Open(r.Context(), s.rt.Store())
	defer f.Close()
	if err := f.Ioctl(chardev.IocSeekTo, chardev.SeekTo{WriteCmd: cmd, WriteCmdOffset: off}); err != nil {
		if errors.Is(err, chardev.ErrInvalidArgument) {
			writeError(w, http.StatusRequestedRangeNotSatisfiable, err)
			return
		}
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	pos := f.Pos()
	content, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Cmdlog-Position", strconv.FormatInt(pos, 10))
	_, _ = w.Write(content)
}

type archiveView struct {
	Seq         uint64 `json:"seq"`
	EvictedAtMs int64  `json:"evicted_at_ms"`
	Reason      string `json:"reason"`
	Text        string `json:"text"`
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	arc := s.rt.Archive()
	if arc == nil {
		writeError(w, http.StatusNotFound, errors.New("archive disabled"))
		return
	}
	q := r.URL.Query()
	opts := archive.ReadOptions{Limit: 100, Reverse: q.Get("reverse") == "true"}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}
	if v := q.Get("start"); v != "" {
		seq, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("start must be an unsigned integer"))
			return
		}
		opts.StartSeq = seq
	}
	f, err := filter.Compile(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, next, err := arc.Read(opts)
	if err != nil {
		s.logger.Error("archive read failed", log.Err(err))
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	out := make([]archiveView, 0, len(items))
	for _, it := range items {
		if !f.Match(filter.Subject{Index: int(it.Seq), Data: it.Data, EvictedAtMs: it.EvictedAtMs, Reason: it.Reason.String()}) {
			continue
		}
		out = append(out, archiveView{Seq: it.Seq, EvictedAtMs: it.EvictedAtMs, Reason: it.Reason.String(), Text: string(it.Data)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "next": next})
}

func parseUint32(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
