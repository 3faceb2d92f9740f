package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"networth/internal/amqp"
	"networth/internal/core"
	applog "networth/internal/log"
	"networth/internal/middleware/trace"
)

type snapshotListResponse struct {
	From      string                 `json:"from"`
	To        string                 `json:"to"`
	Count     int                    `json:"count"`
	Snapshots []core.MonthlySnapshot `json:"snapshots"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthRange(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snaps, err := s.snapshots.ListSnapshots(r.Context(), params.From, params.To)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if snaps == nil {
		snaps = []core.MonthlySnapshot{}
	}
	NewJSONResponse().Body(snapshotListResponse{
		From:      params.From.String(),
		To:        params.To.String(),
		Count:     len(snaps),
		Snapshots: snaps,
	}).Write(w)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(r.PathValue("month"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snap, err := s.snapshots.GetSnapshot(r.Context(), month)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(snap).Write(w)
}

type verifyResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	OK   bool   `json:"ok"`
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthRange(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.snapshots.VerifyChain(r.Context(), params.From, params.To); err != nil {
		writeError(w, r, applog.OpVerify, err)
		return
	}
	NewJSONResponse().Body(verifyResponse{
		From: params.From.String(),
		To:   params.To.String(),
		OK:   true,
	}).Write(w)
}

// generateRequest selects either one month or an inclusive range.
type generateRequest struct {
	Month  string `json:"month,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Verify bool   `json:"verify,omitempty"`
}

type generateResponse struct {
	RunID     string   `json:"run_id"`
	Requested []string `json:"requested"`
	Committed []string `json:"committed"`
	Verified  bool     `json:"verified,omitempty"`
}

type queuedResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// handleGenerate regenerates snapshots synchronously, or queues the request
// for the worker when a publisher is configured.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	requestID := trace.GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	msg := &amqp.SnapshotRequestMessage{
		RequestID: requestID,
		Month:     req.Month,
		From:      req.From,
		To:        req.To,
		Verify:    req.Verify,
		Timestamp: time.Now().UTC(),
	}
	months, err := msg.Months()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshotRequest(r.Context(), msg); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to queue snapshot request",
				applog.FieldOperation, applog.OpGenerate, applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "snapshot queue unavailable").Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusAccepted).
			Body(queuedResponse{RequestID: msg.RequestID, Status: "queued"}).
			Write(w)
		return
	}

	res, err := s.snapshots.Generate(r.Context(), months)
	if err != nil {
		writeRunError(w, r, res, err)
		return
	}

	body := generateResponse{
		RunID:     res.RunID,
		Requested: monthStrings(res.Requested),
		Committed: monthStrings(res.Committed),
	}
	if req.Verify {
		if err := s.snapshots.VerifyChain(r.Context(), months[0], months[len(months)-1]); err != nil {
			writeError(w, r, applog.OpVerify, err)
			return
		}
		body.Verified = true
	}
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	res, err := s.bridge.Compute(r.Context(), period.Start, period.End)
	if err != nil {
		writeError(w, r, applog.OpBridge, err)
		return
	}
	if err := res.Check(); err != nil {
		// computed bridges always balance; reaching this is a bug
		writeError(w, r, applog.OpBridge, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}
