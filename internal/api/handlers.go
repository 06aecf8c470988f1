package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/dispute"
	"veritas/internal/domain/evidence"
	disputesvc "veritas/internal/services/dispute"
	evidencesvc "veritas/internal/services/evidence"
	resolutionsvc "veritas/internal/services/resolution"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// Handlers exposes the claim, evidence, dispute and admin endpoints
type Handlers struct {
	resolution *resolutionsvc.Service
	evidence   *evidencesvc.Service
	disputes   *disputesvc.Service
	log        *logger.Logger
}

// NewHandlers creates the HTTP handler set
func NewHandlers(resolution *resolutionsvc.Service, evidence *evidencesvc.Service, disputes *disputesvc.Service) *Handlers {
	return &Handlers{
		resolution: resolution,
		evidence:   evidence,
		disputes:   disputes,
		log:        logger.Get().With("component", "api"),
	}
}

type createClaimRequest struct {
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleCreateClaim registers a new claim
func (h *Handlers) HandleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	c := &claim.Claim{
		Text:      req.Text,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.resolution.CreateClaim(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, c)
}

// HandleGetClaim returns a claim by ID
func (h *Handlers) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	c, err := h.resolution.GetClaim(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}

// HandleLatestResult returns the most recent aggregation result for a claim
func (h *Handlers) HandleLatestResult(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.resolution.LatestResult(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleResultHistory returns past aggregation passes for a claim
func (h *Handlers) HandleResultHistory(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	results, err := h.resolution.ResultHistory(r.Context(), id, 50)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, results)
}

type submitEvidenceRequest struct {
	SubmitterID          uuid.UUID `json:"submitter_id"`
	Content              string    `json:"content"`
	Stance               string    `json:"stance"`
	SourceType           string    `json:"source_type"`
	SourceURL            string    `json:"source_url"`
	BaseQuality          float64   `json:"base_quality"`
	SourceCredibility    float64   `json:"source_credibility"`
	SubmitterBetPosition string    `json:"submitter_bet_position"`
	SubmitterIdentityAge int       `json:"submitter_identity_age_days"`
}

// HandleSubmitEvidence attaches an evidence item to a claim
func (h *Handlers) HandleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	claimID, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req submitEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	item := &evidence.Item{
		ClaimID:                  claimID,
		SubmitterID:              req.SubmitterID,
		Content:                  req.Content,
		SourceType:               evidence.SourceType(req.SourceType),
		SourceURL:                req.SourceURL,
		BaseQuality:              req.BaseQuality,
		SourceCredibility:        req.SourceCredibility,
		SubmitterBetPosition:     evidence.BetPosition(req.SubmitterBetPosition),
		SubmitterIdentityAgeDays: req.SubmitterIdentityAge,
	}
	if err := h.evidence.Submit(r.Context(), item, req.Stance); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, item)
}

// HandleListEvidence returns a claim's evidence items
func (h *Handlers) HandleListEvidence(w http.ResponseWriter, r *http.Request) {
	claimID, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	items, err := h.evidence.ListByClaim(r.Context(), claimID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

type reviewEvidenceRequest struct {
	Stance     string `json:"stance"`
	SourceType string `json:"source_type"`
	Verified   bool   `json:"verified"`
}

// HandleReviewEvidence applies the one-time admin review to an evidence item
func (h *Handlers) HandleReviewEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req reviewEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	pool, err := h.evidence.Review(r.Context(), id,
		evidence.Stance(req.Stance), evidence.SourceType(req.SourceType), req.Verified)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, pool)
}

type forcePreliminaryRequest struct {
	Outcome string `json:"outcome"`
}

// HandleForcePreliminary applies an admin-chosen preliminary outcome
func (h *Handlers) HandleForcePreliminary(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req forcePreliminaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	outcome := claim.Outcome(req.Outcome)
	if !outcome.Valid() {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidInput, "unknown outcome %q", req.Outcome))
		return
	}

	c, err := h.resolution.ForcePreliminaryResolve(r.Context(), id, outcome)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}

type forceFinalRequest struct {
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
}

// HandleForceFinal applies an admin-chosen final outcome and confidence
func (h *Handlers) HandleForceFinal(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req forceFinalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	outcome := claim.Outcome(req.Outcome)
	if !outcome.Valid() {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidInput, "unknown outcome %q", req.Outcome))
		return
	}
	if req.Confidence < 0 || req.Confidence > 100 {
		h.writeError(w, errors.Wrapf(errors.ErrInvalidInput, "confidence %v out of range", req.Confidence))
		return
	}

	c, err := h.resolution.ForceFinalResolve(r.Context(), id, outcome, decimal.NewFromFloat(req.Confidence))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}

type fileDisputeRequest struct {
	FilerID uuid.UUID `json:"filer_id"`
	Reason  string    `json:"reason"`
}

// HandleFileDispute opens a dispute against a claim's preliminary outcome
func (h *Handlers) HandleFileDispute(w http.ResponseWriter, r *http.Request) {
	claimID, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req fileDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	d, err := h.disputes.File(r.Context(), claimID, req.FilerID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, d)
}

// HandleListDisputes returns a claim's disputes, oldest first
func (h *Handlers) HandleListDisputes(w http.ResponseWriter, r *http.Request) {
	claimID, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	items, err := h.disputes.ListByClaim(r.Context(), claimID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

type resolveDisputeRequest struct {
	Status string `json:"status"`
}

// HandleResolveDispute closes an open dispute as upheld or dismissed
func (h *Handlers) HandleResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	d, err := h.disputes.Resolve(r.Context(), id, dispute.Status(req.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, d)
}

type forceRefundRequest struct {
	Reason string `json:"reason"`
}

// HandleForceRefund refunds a claim by admin decision
func (h *Handlers) HandleForceRefund(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req forceRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}
	if req.Reason == "" {
		h.writeError(w, errors.Wrap(errors.ErrInvalidInput, "refund reason is required"))
		return
	}

	c, err := h.resolution.ForceRefund(r.Context(), id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) pathID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidInput, "invalid id %q", r.PathValue(key))
	}
	return id, nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorw("Failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrInvalidTransition),
		errors.Is(err, errors.ErrClaimTerminal),
		errors.Is(err, errors.ErrStaleState),
		errors.Is(err, errors.ErrActiveDispute),
		errors.Is(err, errors.ErrConfidenceTooLow):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Errorw("Request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
