package newsletter

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/http/features/common"
	"github.com/threeeaglesforge/leadverify/internal/verification"
)

const (
	defaultSource = "newsletter"
	invalidLink   = "This confirmation link is invalid or has expired. Please subscribe again."
)

type Handler struct {
	logger       *slog.Logger
	submitter    common.Submitter
	redeemer     common.Redeemer
	siteURL      string
	confirmedURL string
}

func NewHandler(logger *slog.Logger, submitter common.Submitter, redeemer common.Redeemer, siteURL, confirmedURL string) *Handler {
	return &Handler{
		logger:       logger,
		submitter:    submitter,
		redeemer:     redeemer,
		siteURL:      siteURL,
		confirmedURL: confirmedURL,
	}
}

type SubscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

// Subscribe records a newsletter signup and emails the confirmation link.
// POST /api/subscribe
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultSource
	}

	sub := verification.Submission{
		Kind:   domain.SubjectKindSubscription,
		Email:  req.Email,
		Source: source,
	}
	common.Stamp(r, &sub, h.siteURL)

	_, err := h.submitter.Submit(r.Context(), sub)
	common.WriteSubmitResult(w, h.logger, domain.SubjectKindSubscription, err)
}

// Confirm redeems a newsletter confirmation link.
// GET /newsletter/confirm?token=
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	common.RedeemHandler(h.logger, h.redeemer, domain.SubjectKindSubscription, h.confirmedURL, invalidLink)(w, r)
}

// Routes registers the newsletter endpoints. intake and redeem are the rate limiters.
func (h *Handler) Routes(r chi.Router, intake, redeem func(http.Handler) http.Handler) {
	r.With(intake).Post("/api/subscribe", h.Subscribe)
	r.With(redeem).Get("/newsletter/confirm", h.Confirm)
}
