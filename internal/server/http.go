package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/config"
	"guandan-scorekeeper/internal/constants"
	"guandan-scorekeeper/internal/domain"
	"guandan-scorekeeper/internal/middleware"
	"guandan-scorekeeper/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	GamesPath = "/api/games"
	GamePath  = "/api/games/{id}"
)

type GameHandler struct {
	svc    *service.GameService
	cfg    *config.Config
	logger zerolog.Logger
}

func NewGameHandler(svc *service.GameService, cfg *config.Config, logger zerolog.Logger) *GameHandler {
	return &GameHandler{svc: svc, cfg: cfg, logger: logger}
}

// NewHandler assembles the REST routes and the RPC service behind CORS,
// request ids and no-store headers.
func NewHandler(games *GameHandler, rpc *GameRPC, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(GamesPath, games.handleCollection)
	mux.HandleFunc(GamePath, games.handleItem)

	rpcPath, rpcHandler := rpc.Handler()
	mux.Handle(rpcPath, rpcHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	return middleware.RequestID(logger)(c.Handler(middleware.NoStore(mux)))
}

// handleCollection serves /api/games. GET reads ?id=; POST updates the game
// named by ?id= when it exists and creates a new one otherwise.
func (h *GameHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		res, err := h.svc.Get(r.Context(), id)
		h.respond(w, r, res, err)
	case http.MethodPost:
		body, err := decodeBody(w, r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		res, err := h.svc.Save(r.Context(), id, body)
		h.respond(w, r, res, err)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		h.writeError(w, r, apperr.MethodNotAllowed(r.Method))
	}
}

// handleItem serves /api/games/{id}. PUT requires the game to exist.
func (h *GameHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		res, err := h.svc.Get(r.Context(), id)
		h.respond(w, r, res, err)
	case http.MethodPut:
		body, err := decodeBody(w, r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		res, err := h.svc.Update(r.Context(), id, body)
		h.respond(w, r, res, err)
	default:
		w.Header().Set("Allow", "GET, PUT, OPTIONS")
		h.writeError(w, r, apperr.MethodNotAllowed(r.Method))
	}
}

type gameResponse struct {
	OK    bool              `json:"ok"`
	ID    string            `json:"id"`
	State *domain.GameState `json:"state"`
}

type errorResponse struct {
	OK        bool           `json:"ok"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	ErrorCode string         `json:"error_code"`
	ErrorMsg  string         `json:"error_msg"`
	Debug     map[string]any `json:"debug,omitempty"`
}

func (h *GameHandler) respond(w http.ResponseWriter, r *http.Request, res *service.Result, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == service.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, gameResponse{OK: true, ID: res.ID, State: res.State})
}

func (h *GameHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	status := appErr.Status()

	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", appErr.Code).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", appErr.Code).Int("status", status).Msg("request rejected")
	}

	payload := errorResponse{
		OK:        false,
		Error:     appErr.Code,
		Message:   appErr.Message,
		ErrorCode: appErr.Code,
		ErrorMsg:  appErr.Message,
	}
	if h.cfg != nil && h.cfg.DebugErrors {
		payload.Debug = debugInfo(r, appErr)
	}
	writeJSON(w, status, payload)
}

func debugInfo(r *http.Request, appErr *apperr.Error) map[string]any {
	info := map[string]any{
		"kind":      appErr.Kind.String(),
		"requestId": middleware.GetRequestID(r.Context()),
	}
	if appErr.Statement != "" {
		info["statement"] = appErr.Statement
	}
	if appErr.Cause != nil {
		info["cause"] = appErr.Cause.Error()
		if inner := errors.Unwrap(appErr.Cause); inner != nil {
			info["innerCause"] = inner.Error()
		}
	}
	if len(appErr.Stack) > 0 {
		info["stack"] = appErr.Stack
	}
	return info
}

// decodeBody reads a JSON body. An empty body, or one that is not a JSON
// object, yields an empty map; undecodable text is a malformed-input error
// and a body over MaxBodyBytes is a too-large error.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.TooLarge(tooLarge.Limit)
		}
		return nil, apperr.Malformed(err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperr.Malformed(err)
	}
	body, ok := decoded.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(payload)
}
