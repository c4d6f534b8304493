package gateway

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"kvgateway/internal/coordinator"
)

// Handler serves the gateway routes.
type Handler struct {
	coord  Coordinator
	logger *zap.Logger
}

type putRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type putResponse struct {
	Message string   `json:"message"`
	Version int64    `json:"version"`
	Targets []string `json:"targets"`
}

type getResponse struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Version  int64  `json:"version"`
	Source   string `json:"source"`
	Repaired bool   `json:"repaired"`
}

type deleteResponse struct {
	DeletedFrom int `json:"deleted_from"`
}

type onlineNode struct {
	Status string   `json:"status"`
	Keys   []string `json:"keys"`
}

type offlineNode struct {
	Status string `json:"status"`
}

type nodeRequest struct {
	Node string `json:"node"`
}

type nodesResponse struct {
	Nodes []string `json:"nodes"`
}

type targetsResponse struct {
	Key     string   `json:"key"`
	Targets []string `json:"targets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Put stores a key-value pair. Responds 200 with the assigned version once
// enough replicas acknowledged, 400 for a malformed body and 500 when the
// write quorum was not met.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var req putRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		h.fail(w, r, http.StatusBadRequest, coordinator.ErrEmptyKey.Error())
		return
	}

	res, err := h.coord.Put(r.Context(), req.Key, []byte(req.Value))
	if err != nil {
		h.logger.Warn("put failed", zap.String("key", req.Key), zap.Error(err))
		h.fail(w, r, statusFor(err), err.Error())
		return
	}

	render.JSON(w, r, putResponse{
		Message: "Saved",
		Version: res.Version,
		Targets: res.Targets,
	})
}

// Get returns the newest copy of a key: 404 when no replica holds it, 503
// when the read quorum was not met.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}

	res, err := h.coord.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, coordinator.ErrNotFound) {
			h.logger.Warn("get failed", zap.String("key", key), zap.Error(err))
		}
		code := statusFor(err)
		if errors.Is(err, coordinator.ErrNoQuorum) {
			code = http.StatusServiceUnavailable
		}
		h.fail(w, r, code, errorMessage(err))
		return
	}

	render.JSON(w, r, getResponse{
		Key:      key,
		Value:    string(res.Value),
		Version:  res.Version,
		Source:   res.Source,
		Repaired: res.Repaired,
	})
}

// Delete removes a key from its replicas and reports how many held it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}

	res, err := h.coord.Delete(r.Context(), key)
	if err != nil {
		h.fail(w, r, statusFor(err), err.Error())
		return
	}
	render.JSON(w, r, deleteResponse{DeletedFrom: res.Deleted})
}

// ClusterMap lists every configured node as Online with its keys, or
// Offline.
func (h *Handler) ClusterMap(w http.ResponseWriter, r *http.Request) {
	status := h.coord.ClusterStatus(r.Context())

	state := make(map[string]any, len(status))
	for node, s := range status {
		if !s.Online {
			state[node] = offlineNode{Status: "Offline"}
			continue
		}
		keys := s.Keys
		if keys == nil {
			keys = []string{}
		}
		state[node] = onlineNode{Status: "Online", Keys: keys}
	}
	render.JSON(w, r, state)
}

// ListNodes returns the ring members.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, nodesResponse{Nodes: h.coord.Nodes()})
}

// AddNode puts a node on the ring.
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.coord.AddNode(req.Node); err != nil {
		h.fail(w, r, statusFor(err), err.Error())
		return
	}
	render.JSON(w, r, nodesResponse{Nodes: h.coord.Nodes()})
}

// RemoveNode takes a node off the ring.
func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	node, ok := h.pathParam(w, r, "node")
	if !ok {
		return
	}
	if err := h.coord.RemoveNode(node); err != nil {
		h.fail(w, r, statusFor(err), err.Error())
		return
	}
	render.JSON(w, r, nodesResponse{Nodes: h.coord.Nodes()})
}

// Targets shows where a key lives without touching any node.
func (h *Handler) Targets(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}
	render.JSON(w, r, targetsResponse{Key: key, Targets: h.coord.Targets(key)})
}

// Health reports that the gateway is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// pathParam returns the URL parameter unescaped exactly once, answering 400
// itself when it is missing or malformed. It relies on escapedRoutePath.
func (h *Handler) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || v == "" {
		h.fail(w, r, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return v, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrEmptyKey), errors.Is(err, coordinator.ErrEmptyNode):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if errors.Is(err, coordinator.ErrNotFound) {
		return "Key not found"
	}
	return err.Error()
}
