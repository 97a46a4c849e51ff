// Package common holds the request and response plumbing shared by the intake features.
package common

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/http/middleware"
	"github.com/threeeaglesforge/leadverify/internal/httputil"
	"github.com/threeeaglesforge/leadverify/internal/verification"
)

// User-facing messages.
const (
	MsgSubmitted    = "Submitted. Please check your email to confirm."
	MsgInvalidBody  = "Invalid request body."
	MsgServerError  = "Something went wrong. Please try again."
	MsgMissingToken = "Missing token."
)

// Submitter records submissions.
type Submitter interface {
	Submit(ctx context.Context, sub verification.Submission) (*verification.IntakeResult, error)
}

// Redeemer redeems verification tokens.
type Redeemer interface {
	Redeem(ctx context.Context, kind domain.SubjectKind, rawToken string) (*verification.RedemptionResult, error)
}

// DecodeJSON decodes the request body into v. It writes the error response itself and
// reports false when decoding failed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	if middleware.HandleMaxBytesError(w, err) {
		return false
	}
	httputil.Error(w, http.StatusBadRequest, MsgInvalidBody)
	return false
}

// Stamp fills the request metadata of a submission.
func Stamp(r *http.Request, sub *verification.Submission, siteURL string) {
	sub.Referer = r.Referer()
	sub.IP = httputil.ClientIP(r)
	sub.UserAgent = r.UserAgent()
	sub.BaseURL = httputil.BaseURL(r, siteURL)
}

// WriteSubmitResult maps the outcome of Submit onto the JSON envelope.
func WriteSubmitResult(w http.ResponseWriter, logger *slog.Logger, kind domain.SubjectKind, err error) {
	if err == nil {
		httputil.OK(w, MsgSubmitted)
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		httputil.Error(w, http.StatusBadRequest, verr.Message)
		return
	}

	logger.Error("failed to record submission", "kind", kind, "error", err)
	httputil.Error(w, http.StatusInternalServerError, MsgServerError)
}

// RedeemHandler serves a GET redemption link: it redeems ?token= and redirects to
// confirmedURL, or answers with a plain-text error.
func RedeemHandler(logger *slog.Logger, redeemer Redeemer, kind domain.SubjectKind, confirmedURL, invalidMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			httputil.Text(w, http.StatusBadRequest, MsgMissingToken)
			return
		}

		_, err := redeemer.Redeem(r.Context(), kind, token)
		switch {
		case err == nil:
			w.Header().Set("Cache-Control", "no-store")
			http.Redirect(w, r, confirmedURL, http.StatusFound)
		case errors.Is(err, domain.ErrMissingToken):
			httputil.Text(w, http.StatusBadRequest, MsgMissingToken)
		case errors.Is(err, domain.ErrTokenInvalidOrExpired):
			httputil.Text(w, http.StatusBadRequest, invalidMsg)
		default:
			logger.Error("failed to redeem token", "kind", kind, "error", err)
			httputil.Text(w, http.StatusInternalServerError, MsgServerError)
		}
	}
}
