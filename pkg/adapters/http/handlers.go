package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/plot"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/go-chi/chi/v5"
)

// setCellRequest keeps the raw fields so a non-integer coordinate or value is
// reported as OutOfBounds or InvalidValue rather than as a malformed body.
type setCellRequest struct {
	X     json.RawMessage `json:"x"`
	Y     json.RawMessage `json:"y"`
	Value json.RawMessage `json:"value"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// maxExactInt is the largest integer a JSON number decodes to without loss.
const maxExactInt = 1 << 53

// intField decodes an integral JSON number, wrapping kind on any other input.
func intField(raw json.RawMessage, key string, kind error) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %s", kind, key, raw)
	}
	if f != math.Trunc(f) || math.Abs(f) > maxExactInt {
		return 0, fmt.Errorf("%w: %s must be an integer, got %s", kind, key, raw)
	}
	return int(f), nil
}

type seedRequest struct {
	Mode    string `json:"mode"`
	RNGSeed *int64 `json:"rng_seed,omitempty"`
}

type thresholdsRequest struct {
	PosThreshold *int `json:"pos_threshold"`
	NegThreshold *int `json:"neg_threshold"`
}

type thresholdsResponse struct {
	Success      bool `json:"success"`
	PosThreshold int  `json:"pos_threshold"`
	NegThreshold int  `json:"neg_threshold"`
}

type experimentRequest struct {
	RNGSeed *int64 `json:"rng_seed,omitempty"`
}

type saveSnapshotRequest struct {
	Name string `json:"name"`
}

type idResponse struct {
	ID string `json:"id"`
}

type idsResponse struct {
	IDs []string `json:"ids"`
}

// GetGrid handles the GET /grid request.
func (s *Server) GetGrid(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Lab.Grid(r.Context()))
}

// GetMetrics handles the GET /metrics request.
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Lab.Metrics(r.Context()))
}

// SetCell handles the POST /grid/set request.
func (s *Server) SetCell(w http.ResponseWriter, r *http.Request) {
	var body setCellRequest
	if err := decode(w, r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if !present(body.X) || !present(body.Y) || !present(body.Value) {
		s.fail(w, r, fmt.Errorf("%w: x, y and value are required", errBadRequest))
		return
	}
	x, err := intField(body.X, "x", domain.ErrOutOfBounds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, err := intField(body.Y, "y", domain.ErrOutOfBounds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	value, err := intField(body.Value, "value", domain.ErrInvalidValue)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Lab.SetCell(r.Context(), x, y, value); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success)
}

// StepGrid handles the POST /grid/step request.
func (s *Server) StepGrid(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: count %q is not an integer", domain.ErrInvalidValue, raw))
			return
		}
		count = n
	}

	view, err := s.Lab.StepN(r.Context(), count)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// ResetGrid handles the POST /grid/reset request.
func (s *Server) ResetGrid(w http.ResponseWriter, r *http.Request) {
	if err := s.Lab.Reset(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success)
}

// SetGridSize handles the POST /grid/size/{n} request.
func (s *Server) SetGridSize(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "n")
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidSize, raw))
		return
	}
	if err := s.Lab.Resize(r.Context(), n); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success)
}

// SeedGrid handles the POST /grid/seed request.
func (s *Server) SeedGrid(w http.ResponseWriter, r *http.Request) {
	var body seedRequest
	if err := decode(w, r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.Lab.Seed(r.Context(), body.Mode, body.RNGSeed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// GetThresholds handles the GET /grid/thresholds request.
func (s *Server) GetThresholds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Lab.Thresholds(r.Context()))
}

// SetThresholds handles the POST /grid/thresholds request.
func (s *Server) SetThresholds(w http.ResponseWriter, r *http.Request) {
	var body thresholdsRequest
	if err := decode(w, r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.PosThreshold == nil || body.NegThreshold == nil {
		s.fail(w, r, fmt.Errorf("%w: pos_threshold and neg_threshold are required", errBadRequest))
		return
	}
	t, err := s.Lab.SetThresholds(r.Context(), *body.PosThreshold, *body.NegThreshold)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, thresholdsResponse{Success: true, PosThreshold: t.Pos, NegThreshold: t.Neg})
}

// ExportPattern handles the GET /grid/export request.
func (s *Server) ExportPattern(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Lab.Export(r.Context()))
}

// ImportPattern handles the POST /grid/import request.
// Both the current export layout and the legacy one are accepted.
func (s *Server) ImportPattern(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	doc, err := snapshot.Decode(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Lab.ImportDocument(r.Context(), doc); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success)
}

// GetEntropyChart handles the GET /grid/entropy.png request.
func (s *Server) GetEntropyChart(w http.ResponseWriter, r *http.Request) {
	m := s.Lab.Metrics(r.Context())
	first := m.Step - len(m.EntropyHistory) + 1

	var buf bytes.Buffer
	if err := plot.WritePNG(&buf, m.EntropyHistory, first); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// ListExperiments handles the GET /experiments request.
func (s *Server) ListExperiments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Lab.Experiments())
}

// RunExperiment handles the POST /experiments/{name} request.
func (s *Server) RunExperiment(w http.ResponseWriter, r *http.Request) {
	var body experimentRequest
	if err := decode(w, r, &body, false); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.Lab.RunExperiment(r.Context(), chi.URLParam(r, "name"), body.RNGSeed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// ListSnapshots handles the GET /snapshots request.
func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Lab.ListSnapshots(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, idsResponse{IDs: ids})
}

// SaveSnapshot handles the POST /snapshots request.
func (s *Server) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var body saveSnapshotRequest
	if err := decode(w, r, &body, false); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.Lab.SaveSnapshot(r.Context(), body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// GetSnapshot handles the GET /snapshots/{id} request.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Lab.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DeleteSnapshot handles the DELETE /snapshots/{id} request.
func (s *Server) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.Lab.DeleteSnapshot(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success)
}

// LoadSnapshot handles the POST /snapshots/{id}/load request.
func (s *Server) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.Lab.LoadSnapshot(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success)
}

// SubscribeEvents handles the GET /grid/events request (SSE).
// The optional "types" query parameter filters by event type (e.g. "step,seed").
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var watch map[string]bool
	if raw := r.URL.Query().Get("types"); raw != "" {
		watch = make(map[string]bool)
		for _, t := range strings.Split(raw, ",") {
			watch[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()
	s.logger.Info("SSE: Client subscribed", "subscribers", s.Streams.Subscribers())

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if watch != nil && !watch[eventType(msg)] {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// eventType extracts the "type" field from an encoded LabEvent without a full decode.
func eventType(msg string) string {
	const key = `"type":"`
	i := strings.Index(msg, key)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(key):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		return rest[:j]
	}
	return ""
}
