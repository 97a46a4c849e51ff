package contact

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/http/features/common"
	"github.com/threeeaglesforge/leadverify/internal/verification"
)

const (
	defaultSource = "contact"
	invalidLink   = "This confirmation link is invalid or has expired. Please resubmit the contact form."
)

type Handler struct {
	logger       *slog.Logger
	submitter    common.Submitter
	redeemer     common.Redeemer
	siteURL      string
	confirmedURL string
}

func NewHandler(
	logger *slog.Logger,
	submitter common.Submitter,
	redeemer common.Redeemer,
	siteURL string,
	confirmedURL string,
) *Handler {
	return &Handler{
		logger:       logger,
		submitter:    submitter,
		redeemer:     redeemer,
		siteURL:      siteURL,
		confirmedURL: confirmedURL,
	}
}

type SubmitRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	// Company is the hidden honeypot field.
	Company string `json:"company"`
}

// Submit records a contact message and emails the confirmation link.
// POST /api/contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}

	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" && last == "" {
		first, last = splitName(req.Name)
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultSource
	}

	sub := verification.Submission{
		Kind:      domain.SubjectKindLead,
		Email:     req.Email,
		FirstName: first,
		LastName:  last,
		Phone:     req.Phone,
		Message:   req.Message,
		Source:    source,
		Honeypot:  req.Company,
	}
	common.Stamp(r, &sub, h.siteURL)

	_, err := h.submitter.Submit(r.Context(), sub)
	common.WriteSubmitResult(w, h.logger, domain.SubjectKindLead, err)
}

// Verify redeems a contact confirmation link.
// GET /api/contact/verify?token=
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	common.RedeemHandler(h.logger, h.redeemer, domain.SubjectKindLead, h.confirmedURL, invalidLink)(w, r)
}

// splitName splits "Jane van Doe" into "Jane" and "van Doe".
func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}
