package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cogmesh/atomspace/internal/atomspace"
	"github.com/cogmesh/atomspace/internal/cogerr"
	"github.com/cogmesh/atomspace/internal/coord"
)

// Handler adapts a coord.Node onto an HTTP surface: routes sit at
// /api/atoms, /api/links, /api/cluster, /api/consensus against a single
// node.
type Handler struct {
	node *coord.Node
}

// NewHandler creates an HTTP handler bound to node.
func NewHandler(node *coord.Node) *Handler {
	return &Handler{node: node}
}

// RegisterRoutes mounts every route this handler serves onto r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/atoms", h.CreateAtom)
		r.Get("/atoms/{id}", h.GetAtom)
		r.Get("/atoms", h.QueryAtoms)
		r.Put("/atoms/{id}", h.UpdateAtom)
		r.Delete("/atoms/{id}", h.ReleaseAtom)

		r.Post("/links", h.CreateLink)

		r.Get("/cluster/nodes", h.ListNodes)
		r.Post("/cluster/nodes", h.JoinNode)
		r.Delete("/cluster/nodes/{id}", h.RemoveNode)

		r.Post("/consensus/propose", h.Propose)
		r.Post("/consensus/{id}/vote", h.Vote)
		r.Get("/consensus/{id}", h.ProposalStatus)

		r.Get("/stats", h.Stats)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := cogerr.KindOf(err); ok {
		switch kind {
		case cogerr.InvalidArgument:
			status = http.StatusBadRequest
		case cogerr.NotFound:
			status = http.StatusNotFound
		case cogerr.QueueFull:
			status = http.StatusServiceUnavailable
		case cogerr.TimedOut:
			status = http.StatusGatewayTimeout
		case cogerr.AlreadyRunning, cogerr.NotRunning:
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseHandleID(r *http.Request, param string) (uint64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, cogerr.New(cogerr.InvalidArgument, "invalid id %q", raw)
	}
	return id, nil
}

func handleView(h *atomspace.Handle) map[string]interface{} {
	tv := h.GetTruthValue()
	av := h.GetAttentionValue()
	name, hasName := h.Name()
	view := map[string]interface{}{
		"id":   h.ID(),
		"kind": h.Atom().Kind.String(),
		"truth_value": map[string]float64{
			"strength":   tv.Strength,
			"confidence": tv.Confidence,
		},
		"attention_value": map[string]int16{
			"sti":  av.STI,
			"lti":  av.LTI,
			"vlti": av.VLTI,
		},
	}
	if hasName {
		view["name"] = name
	}
	return view
}

// CreateAtom creates a node atom.
func (h *Handler) CreateAtom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind       string  `json:"kind"`
		Name       string  `json:"name"`
		Strength   float64 `json:"strength"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.Wrap(cogerr.InvalidArgument, err, "decode request body"))
		return
	}

	kind, ok := parseKind(req.Kind)
	if !ok {
		writeError(w, cogerr.New(cogerr.InvalidArgument, "unknown atom kind %q", req.Kind))
		return
	}

	handle, err := h.node.Space.Create(kind, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Strength != 0 || req.Confidence != 0 {
		handle.SetTruthValue(atomspace.TruthValue{Strength: req.Strength, Confidence: req.Confidence})
	}

	writeJSON(w, http.StatusCreated, handleView(handle))
}

// GetAtom retrieves one atom by id.
func (h *Handler) GetAtom(w http.ResponseWriter, r *http.Request) {
	id, err := parseHandleID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	handle, ok := h.node.Space.Get(id)
	if !ok {
		writeError(w, cogerr.New(cogerr.NotFound, "atom %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, handleView(handle))
}

// QueryAtoms lists atoms, optionally filtered by kind or name.
func (h *Handler) QueryAtoms(w http.ResponseWriter, r *http.Request) {
	kindParam := r.URL.Query().Get("kind")
	nameParam := r.URL.Query().Get("name")

	var handles []*atomspace.Handle
	switch {
	case kindParam != "":
		kind, ok := parseKind(kindParam)
		if !ok {
			writeError(w, cogerr.New(cogerr.InvalidArgument, "unknown atom kind %q", kindParam))
			return
		}
		handles = h.node.Space.ByType(kind)
	case nameParam != "":
		handles = h.node.Space.ByName(nameParam)
	default:
		handles = h.node.Space.Match(func(*atomspace.Handle) bool { return true })
	}
	defer func() {
		for _, hd := range handles {
			h.node.Space.Release(hd)
		}
	}()

	out := make([]map[string]interface{}, len(handles))
	for i, hd := range handles {
		out[i] = handleView(hd)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"atoms": out, "count": len(out)})
}

// UpdateAtom updates an atom's truth or attention value.
func (h *Handler) UpdateAtom(w http.ResponseWriter, r *http.Request) {
	id, err := parseHandleID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	handle, ok := h.node.Space.Get(id)
	if !ok {
		writeError(w, cogerr.New(cogerr.NotFound, "atom %d not found", id))
		return
	}

	var req struct {
		Strength   *float64 `json:"strength"`
		Confidence *float64 `json:"confidence"`
		STI        *int16   `json:"sti"`
		LTI        *int16   `json:"lti"`
		VLTI       *int16   `json:"vlti"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.Wrap(cogerr.InvalidArgument, err, "decode request body"))
		return
	}

	if req.Strength != nil || req.Confidence != nil {
		tv := handle.GetTruthValue()
		if req.Strength != nil {
			tv.Strength = *req.Strength
		}
		if req.Confidence != nil {
			tv.Confidence = *req.Confidence
		}
		handle.SetTruthValue(tv)
	}
	if req.STI != nil || req.LTI != nil || req.VLTI != nil {
		av := handle.GetAttentionValue()
		if req.STI != nil {
			av.STI = *req.STI
		}
		if req.LTI != nil {
			av.LTI = *req.LTI
		}
		if req.VLTI != nil {
			av.VLTI = *req.VLTI
		}
		handle.SetAttentionValue(av)
	}

	writeJSON(w, http.StatusOK, handleView(handle))
}

// ReleaseAtom releases the AtomSpace's caller-visible retain on an atom.
func (h *Handler) ReleaseAtom(w http.ResponseWriter, r *http.Request) {
	id, err := parseHandleID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	handle, ok := h.node.Space.Get(id)
	if !ok {
		writeError(w, cogerr.New(cogerr.NotFound, "atom %d not found", id))
		return
	}
	h.node.Space.Release(handle)
	writeJSON(w, http.StatusOK, map[string]string{"message": "released", "id": strconv.FormatUint(id, 10)})
}

// CreateLink creates a link atom over existing outgoing atoms.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string   `json:"kind"`
		Outgoing []uint64 `json:"outgoing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.Wrap(cogerr.InvalidArgument, err, "decode request body"))
		return
	}
	kind, ok := parseKind(req.Kind)
	if !ok {
		writeError(w, cogerr.New(cogerr.InvalidArgument, "unknown atom kind %q", req.Kind))
		return
	}

	targets := make([]*atomspace.Handle, 0, len(req.Outgoing))
	for _, id := range req.Outgoing {
		t, ok := h.node.Space.Get(id)
		if !ok {
			writeError(w, cogerr.New(cogerr.InvalidArgument, "outgoing atom %d not found", id))
			return
		}
		targets = append(targets, t)
	}

	link, err := h.node.Space.CreateLink(kind, targets)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, handleView(link))
}

// ListNodes returns the cluster membership snapshot.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.node.Table.Snapshot())
}

// JoinNode registers a new cluster peer.
func (h *Handler) JoinNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID   uint32 `json:"node_id"`
		Hostname string `json:"hostname"`
		Port     uint16 `json:"port"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.Wrap(cogerr.InvalidArgument, err, "decode request body"))
		return
	}
	if err := h.node.Table.Add(req.NodeID, req.Hostname, req.Port, 0); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"node_id": req.NodeID})
}

// RemoveNode removes a cluster peer.
func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseHandleID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.node.Table.Remove(uint32(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

// Propose begins a new consensus round over the raw JSON bytes of the
// request body's "payload" field.
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.Wrap(cogerr.InvalidArgument, err, "decode request body"))
		return
	}
	id := h.node.Propose(req.Payload)
	writeJSON(w, http.StatusCreated, map[string]string{"proposal_id": id})
}

// Vote casts a vote on a proposal.
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "id")
	var req struct {
		NodeID uint32 `json:"node_id"`
		Accept bool   `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.Wrap(cogerr.InvalidArgument, err, "decode request body"))
		return
	}
	if err := h.node.Vote(proposalID, req.NodeID, req.Accept); err != nil {
		writeError(w, err)
		return
	}
	phase, _ := h.node.ProposalPhase(proposalID)
	writeJSON(w, http.StatusOK, map[string]string{"phase": phase.String()})
}

// ProposalStatus reports a proposal's current phase.
func (h *Handler) ProposalStatus(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "id")
	phase, err := h.node.ProposalPhase(proposalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"proposal_id": proposalID, "phase": phase.String()})
}

// Stats reports this node's aggregate statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.node.GetStats())
}

func parseKind(s string) (atomspace.Kind, bool) {
	switch s {
	case "", "concept":
		return atomspace.Concept, true
	case "predicate":
		return atomspace.Predicate, true
	case "link":
		return atomspace.Link, true
	case "node":
		return atomspace.Node, true
	case "variable":
		return atomspace.Variable, true
	case "evaluation":
		return atomspace.Evaluation, true
	case "execution":
		return atomspace.Execution, true
	case "custom":
		return atomspace.Custom, true
	default:
		return 0, false
	}
}
