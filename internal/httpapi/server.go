// Package httpapi exposes the engine over HTTP: JSON routes for workspaces,
// nodes, references, context, and dispatch, plus an SSE change stream. Every
// handler funnels into the engine so semantics stay identical across
// transports.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/capabilities"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/git"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/session"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store/postgres"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store/sqlite"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

// defaultMaxRequestBodyBytes is the default limit for request body size (1 MiB).
const defaultMaxRequestBodyBytes = 1 << 20

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Home                  string
	Addr                  string
	Dev                   bool
	APIKey                string       // if set, require X-API-Key header or query api_key
	DBDriver              string       // "sqlite" (default) or "postgres"
	DBURL                 string       // for postgres: connection string (or set DATABASE_URL env)
	MaxBodyBytes          int64        // request body cap; 0 uses the default
	MetricsHandler        http.Handler // if set, used for /metrics
	UseOtelHTTP           bool         // if true, wrap handler with otelhttp for request metrics
	AllowSystemRuleBypass bool
	WebhookURL            string // change-event webhook (config file; TANMIWS_WEBHOOK_URL env as fallback)
}

// App holds the HTTP server, SSE hub, engine, and session binder.
type App struct {
	Server       *http.Server
	Hub          *SSEHub
	Engine       *engine.Engine
	Sessions     *session.Binder
	Capabilities *capabilities.Registry
	Home         string
}

// hubNotifier fans engine change events out to the SSE hub and any
// registered capabilities.
type hubNotifier struct {
	hub  *SSEHub
	caps *capabilities.Registry
}

func (n hubNotifier) Changed(ev models.ChangeEvent) {
	n.hub.PublishJSON(ev)
	if n.caps != nil {
		for _, err := range n.caps.NotifyAll(context.Background(), ev) {
			slog.Warn("capability notification failed", "err", err)
		}
	}
}

// NewApp creates the HTTP app and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	hub := NewSSEHub()
	mux := http.NewServeMux()

	var st store.Store
	var err error
	if opts.DBDriver == "postgres" {
		st, err = postgres.Open(opts.DBURL)
	} else {
		st, err = sqlite.Open(opts.Home)
	}
	if err != nil {
		return nil, err
	}

	reg := capabilities.NewRegistry()
	webhookURL := opts.WebhookURL
	if webhookURL == "" {
		webhookURL = os.Getenv("TANMIWS_WEBHOOK_URL")
	}
	if webhookURL != "" {
		reg.Register("webhook", capabilities.Webhook{URL: webhookURL})
	}
	if u := os.Getenv("SLACK_WEBHOOK_URL"); u != "" {
		reg.Register("slack", capabilities.SlackWebhook{WebhookURL: u})
	}

	eng := engine.New(st)
	eng.VCS = git.New()
	eng.Notifier = hubNotifier{hub: hub, caps: reg}
	eng.AllowSystemRuleBypass = opts.AllowSystemRuleBypass

	app := &App{
		Server:       nil,
		Hub:          hub,
		Engine:       eng,
		Sessions:     session.NewBinder(),
		Capabilities: reg,
		Home:         opts.Home,
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}
	mux.HandleFunc("/stream", hub.Handler())
	mux.HandleFunc("/invoke", app.handleInvoke)
	mux.HandleFunc("/workspaces", app.handleWorkspaces)
	mux.HandleFunc("/workspaces/", app.handleWorkspaceScoped)

	var handler http.Handler = mux
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxRequestBodyBytes
	}
	handler = bodyLimitMiddleware(maxBody, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "tanmiws")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
	})
	app.Server = srv
	return app, nil
}

// handleInvoke is the raw transport funnel: one POST body per engine request.
func (a *App) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := a.Engine.Invoke(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if res == nil {
		res = map[string]any{"ok": true}
	}
	writeJSON(w, res)
}

func (a *App) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		infos, err := a.Engine.ListWorkspaces(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if infos == nil {
			infos = []store.WorkspaceInfo{}
		}
		writeJSON(w, infos)
	case http.MethodPost:
		var body struct {
			Name  string   `json:"name"`
			Goal  string   `json:"goal"`
			Rules []string `json:"rules"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		ws, err := a.Engine.CreateWorkspace(r.Context(), body.Name, body.Goal, body.Rules)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, ws)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleWorkspaceScoped routes /workspaces/{id}/... paths.
func (a *App) handleWorkspaceScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/workspaces/")
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	wsID := parts[0]

	// /workspaces/{id}
	if len(parts) == 1 || parts[1] == "" {
		switch r.Method {
		case http.MethodGet:
			ws, err := a.Engine.GetWorkspace(r.Context(), wsID)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, ws)
		case http.MethodDelete:
			force := r.URL.Query().Get("force") == "true"
			if err := a.Engine.DeleteWorkspace(r.Context(), wsID, force); err != nil {
				writeEngineError(w, err)
				return
			}
			a.Sessions.DropWorkspace(wsID)
			writeJSON(w, map[string]any{"ok": true})
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch parts[1] {
	case "archive":
		a.postOnly(w, r, func() error { return a.Engine.ArchiveWorkspace(r.Context(), wsID) })
	case "restore":
		a.postOnly(w, r, func() error { return a.Engine.RestoreWorkspace(r.Context(), wsID) })
	case "rules":
		a.handleRules(w, r, wsID)
	case "focus":
		a.handleFocus(w, r, wsID)
	case "context":
		a.handleContext(w, r, wsID)
	case "nodes":
		a.handleNodes(w, r, wsID, parts[2:])
	case "dispatch":
		a.handleDispatch(w, r, wsID, parts[2:])
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) postOnly(w http.ResponseWriter, r *http.Request, fn func() error) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := fn(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleRules(w http.ResponseWriter, r *http.Request, wsID string) {
	if r.Method != http.MethodPut {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Rules []string `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	fp, err := a.Engine.SetRules(r.Context(), wsID, body.Rules)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]string{"rules_digest": fp})
}

func (a *App) handleFocus(w http.ResponseWriter, r *http.Request, wsID string) {
	if r.Method != http.MethodPut {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		NodeID string `json:"node_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := a.Engine.SetFocus(r.Context(), wsID, body.NodeID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleContext(w http.ResponseWriter, r *http.Request, wsID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	opts := engine.ContextOptions{
		IncludeLog:     q.Get("include_log") == "true",
		LogNewestFirst: q.Get("log_newest_first") == "true",
	}
	if v := q.Get("log_limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.LogLimit = n
		}
	}
	view, err := a.Engine.Context(r.Context(), wsID, q.Get("node_id"), opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, view)
}

func (a *App) handleNodes(w http.ResponseWriter, r *http.Request, wsID string, parts []string) {
	// POST /workspaces/{id}/nodes
	if len(parts) == 0 || parts[0] == "" {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			ParentID    string `json:"parent_id"`
			Kind        string `json:"kind"`
			Title       string `json:"title"`
			Requirement string `json:"requirement"`
			Role        string `json:"role"`
			Isolated    bool   `json:"isolated"`
			RulesDigest string `json:"rules_digest"`
			Actor       string `json:"actor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		n, err := a.Engine.AddNode(r.Context(), wsID, engine.AddNodeInput{
			ParentID:         body.ParentID,
			Kind:             graph.NodeKind(body.Kind),
			Title:            body.Title,
			Requirement:      body.Requirement,
			Role:             graph.Role(body.Role),
			Isolated:         body.Isolated,
			RulesFingerprint: body.RulesDigest,
			Actor:            actorOrDefault(body.Actor),
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, n)
		return
	}

	nodeID := parts[0]

	// /workspaces/{id}/nodes/{nid}
	if len(parts) == 1 || parts[1] == "" {
		switch r.Method {
		case http.MethodGet:
			n, err := a.Engine.GetNode(r.Context(), wsID, nodeID)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, n)
		case http.MethodPatch:
			var body struct {
				Title       *string `json:"title"`
				Requirement *string `json:"requirement"`
				Note        *string `json:"note"`
				Isolated    *bool   `json:"isolated"`
				Actor       string  `json:"actor"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid json")
				return
			}
			n, err := a.Engine.UpdateNode(r.Context(), wsID, engine.UpdateNodeInput{
				NodeID:      nodeID,
				Title:       body.Title,
				Requirement: body.Requirement,
				Note:        body.Note,
				Isolated:    body.Isolated,
				Actor:       actorOrDefault(body.Actor),
			})
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, n)
		case http.MethodDelete:
			var body struct {
				RulesDigest string `json:"rules_digest"`
				Actor       string `json:"actor"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.RulesDigest == "" {
				body.RulesDigest = r.URL.Query().Get("rules_digest")
			}
			if err := a.Engine.RemoveNode(r.Context(), wsID, nodeID, body.RulesDigest, actorOrDefault(body.Actor)); err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch parts[1] {
	case "transition":
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			Action     string `json:"action"`
			Conclusion string `json:"conclusion"`
			Actor      string `json:"actor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		n, err := a.Engine.Transition(r.Context(), wsID, engine.TransitionInput{
			NodeID:     nodeID,
			Action:     engine.Action(body.Action),
			Conclusion: body.Conclusion,
			Actor:      actorOrDefault(body.Actor),
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, n)
	case "move":
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			ParentID    string `json:"parent_id"`
			RulesDigest string `json:"rules_digest"`
			Actor       string `json:"actor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := a.Engine.MoveNode(r.Context(), wsID, nodeID, body.ParentID, body.RulesDigest, actorOrDefault(body.Actor)); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	case "history":
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		hist, err := a.Engine.NodeHistory(r.Context(), wsID, nodeID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, map[string]any{"prior_conclusions": hist})
	case "refs":
		a.handleRefs(w, r, wsID, nodeID, parts[2:])
	case "dispatch":
		a.handleNodeDispatch(w, r, wsID, nodeID, parts[2:])
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handleRefs(w http.ResponseWriter, r *http.Request, wsID, nodeID string, parts []string) {
	if len(parts) == 0 || parts[0] == "" {
		switch r.Method {
		case http.MethodPost:
			var body struct {
				TargetNode  string `json:"target_node"`
				TargetPath  string `json:"target_path"`
				Description string `json:"description"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid json")
				return
			}
			ref, err := a.Engine.AddReference(r.Context(), wsID, engine.AddReferenceInput{
				NodeID:      nodeID,
				TargetNode:  body.TargetNode,
				TargetPath:  body.TargetPath,
				Description: body.Description,
			})
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, ref)
		case http.MethodDelete:
			target := r.URL.Query().Get("target")
			if target == "" {
				writeJSONError(w, http.StatusBadRequest, "target query required")
				return
			}
			if err := a.Engine.RemoveReference(r.Context(), wsID, nodeID, target); err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	var body struct {
		Target string `json:"target"`
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var err error
	switch parts[0] {
	case "expire":
		err = a.Engine.ExpireReference(r.Context(), wsID, nodeID, body.Target)
	case "activate":
		err = a.Engine.ActivateReference(r.Context(), wsID, nodeID, body.Target)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleDispatch(w http.ResponseWriter, r *http.Request, wsID string, parts []string) {
	if r.Method != http.MethodPost || len(parts) == 0 {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch parts[0] {
	case "enable":
		var body struct {
			Mode    string `json:"mode"`
			RepoDir string `json:"repo_dir"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := a.Engine.DispatchEnable(r.Context(), wsID, graph.DispatchMode(body.Mode), body.RepoDir); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	case "disable":
		var body struct {
			Strategy string `json:"strategy"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		res, err := a.Engine.DispatchDisable(r.Context(), wsID, body.Strategy)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, res)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handleNodeDispatch(w http.ResponseWriter, r *http.Request, wsID, nodeID string, parts []string) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if len(parts) == 0 || parts[0] == "" {
		var body struct {
			Actor string `json:"actor"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		n, err := a.Engine.DispatchNode(r.Context(), wsID, nodeID, actorOrDefault(body.Actor))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, n)
		return
	}
	if parts[0] != "complete" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	var body struct {
		Success    bool   `json:"success"`
		Conclusion string `json:"conclusion"`
		Actor      string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	out, err := a.Engine.DispatchComplete(r.Context(), wsID, nodeID, body.Success, body.Conclusion, actorOrDefault(body.Actor))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, out)
}

func actorOrDefault(s string) graph.Actor {
	if s == "" {
		return graph.ActorAutomated
	}
	return graph.Actor(s)
}

// --- middleware ---

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read
// more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures status code for logging and forwards Flusher if
// supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// --- responses ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a typed failure body with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(models.Failure{Code: failureCodeForStatus(code), Message: message})
}

// writeEngineError maps engine failure codes onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	code := engine.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusForCode(code))
	_ = json.NewEncoder(w).Encode(models.Failure{Code: string(code), Message: err.Error()})
}

func httpStatusForCode(code engine.Code) int {
	switch code {
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeInvalidTransition:
		return http.StatusConflict
	case engine.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case engine.CodeExternalFailure:
		return http.StatusBadGateway
	case engine.CodeCorruption:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func failureCodeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(engine.CodeNotFound)
	case http.StatusConflict:
		return string(engine.CodeInvalidTransition)
	case http.StatusPreconditionFailed:
		return string(engine.CodePreconditionFailed)
	case http.StatusBadGateway:
		return string(engine.CodeExternalFailure)
	default:
		return "request_error"
	}
}
