package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

const (
	playlistInfoRoute = "/api/playlist_info/{provider}"
	playlistRoute     = "/api/playlist/{provider}"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// PlaylistHandler serves playlist metadata and cached playlists as JSON.
//
// Every failure is reported as 404 with an {"error": ...} body.
type PlaylistHandler struct {
	engine tasks.SyncEngine
	logger *log.Logger
}

// NewPlaylistHandler creates a PlaylistHandler backed by engine.
func NewPlaylistHandler(engine tasks.SyncEngine, logger *log.Logger) *PlaylistHandler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &PlaylistHandler{engine: engine, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{playlistInfoRoute, playlistRoute}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowed(http.MethodGet, r.Method) {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider := r.PathValue("provider")
	id := r.URL.Query().Get("id")

	switch r.Pattern {
	case playlistInfoRoute:
		h.info(w, r, provider, id)
	case playlistRoute:
		h.playlist(w, r, provider, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *PlaylistHandler) info(w http.ResponseWriter, r *http.Request, provider, id string) {
	info, err := h.engine.Info(r.Context(), provider, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *PlaylistHandler) playlist(w http.ResponseWriter, r *http.Request, provider, id string) {
	res, err := h.engine.Sync(r.Context(), provider, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Outcome == tasks.OutcomeNotFound || res.Playlist == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}

	h.logger.Debug("served playlist", "provider", provider, "id", id, "outcome", res.Outcome, "request_id", RequestIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, res.Playlist)
}

// fail maps err to a client-facing message. Unexpected errors are logged and hidden.
func (h *PlaylistHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var msg string
	switch {
	case errors.Is(err, shared.ErrUnsupportedPlatform):
		msg = "unsupported provider"
	case errors.Is(err, shared.ErrMissingArgument):
		msg = "missing id"
	case errors.Is(err, shared.ErrPlaylistNotFound):
		msg = "playlist not found"
	default:
		msg = "playlist could not be fetched"
		h.logger.Warn("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
	}
	writeError(w, http.StatusNotFound, msg)
}

// NewStaticHandler serves files from dir.
func NewStaticHandler(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

// NewRouter wires the API and static routes behind the standard middleware.
func NewRouter(engine tasks.SyncEngine, staticDir string, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Recover(logger))
	router.Handler(NewPlaylistHandler(engine, logger))
	if staticDir != "" {
		router.Handle(http.MethodGet, "/", NewStaticHandler(staticDir))
	}
	return router
}
