// Package revocationadmin mounts the Revocation Check's administrative
// surface (§6.6): revoke, unrevoke, list, check, and Bloom filter
// stats, modeled on the teacher's loglevel Mount pattern.
package revocationadmin

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/gatewayerr"
	leghttp "github.com/seatrace-io/leg/internal/httputil"
	"github.com/seatrace-io/leg/internal/revocation"
)

// RevocationAdmin exposes the CRL's mutation and inspection endpoints.
type RevocationAdmin struct {
	crl  *revocation.CRL
	sink correlation.Sink
}

// New constructs a RevocationAdmin. Every successful revoke/unrevoke is
// recorded through sink, alongside the pipeline's own admission
// decisions, so the two kinds of event land in the same audit stream.
func New(crl *revocation.CRL, sink correlation.Sink) *RevocationAdmin {
	return &RevocationAdmin{crl: crl, sink: sink}
}

func (a *RevocationAdmin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/stats").
		Methods(http.MethodGet).
		Name("revocation-stats").
		HandlerFunc(leghttp.WrapHandlerFunc(a.stats))

	sub.Path("/{licenseId}").
		Methods(http.MethodPut).
		Name("revoke-license").
		HandlerFunc(leghttp.WrapHandlerFunc(a.revoke))

	sub.Path("/{licenseId}").
		Methods(http.MethodDelete).
		Name("unrevoke-license").
		HandlerFunc(leghttp.WrapHandlerFunc(a.unrevoke))

	sub.Path("/{licenseId}").
		Methods(http.MethodGet).
		Name("check-license").
		HandlerFunc(leghttp.WrapHandlerFunc(a.check))

	sub.Path("").
		Methods(http.MethodGet).
		Name("list-revocations").
		HandlerFunc(leghttp.WrapHandlerFunc(a.list))
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (a *RevocationAdmin) revoke(w http.ResponseWriter, r *http.Request) error {
	licenseID := mux.Vars(r)["licenseId"]

	var req revokeRequest
	if r.ContentLength != 0 {
		if err := leghttp.ParseJSON(r.Body, &req); err != nil {
			return gatewayerr.New(http.StatusBadRequest, gatewayerr.CodeMalformed, "invalid request body")
		}
	}

	if err := a.crl.Revoke(r.Context(), revocation.Entry{
		LicenseID: licenseID,
		RevokedAt: time.Now(),
		Reason:    req.Reason,
	}); err != nil {
		return gatewayerr.New(http.StatusInternalServerError, gatewayerr.CodeMalformed, err.Error())
	}
	a.audit(r, "revoke", licenseID, req.Reason)
	return leghttp.WriteJSON(w, map[string]string{"status": "revoked", "license_id": licenseID})
}

func (a *RevocationAdmin) unrevoke(w http.ResponseWriter, r *http.Request) error {
	licenseID := mux.Vars(r)["licenseId"]
	if err := a.crl.Unrevoke(r.Context(), licenseID); err != nil {
		return gatewayerr.New(http.StatusInternalServerError, gatewayerr.CodeMalformed, err.Error())
	}
	a.audit(r, "unrevoke", licenseID, "")
	return leghttp.WriteJSON(w, map[string]string{"status": "unrevoked", "license_id": licenseID})
}

// audit records a revoke/unrevoke action in the same structured-log
// stream as the pipeline's admission decisions (SPEC_FULL.md's
// administrative audit trail).
func (a *RevocationAdmin) audit(r *http.Request, action, licenseID, reason string) {
	if a.sink == nil {
		return
	}
	a.sink.Record(r.Context(), correlation.Event{
		Event:     "revocation_admin",
		LicenseID: licenseID,
		Outcome:   action,
		Reason:    reason,
	})
}

func (a *RevocationAdmin) check(w http.ResponseWriter, r *http.Request) error {
	licenseID := mux.Vars(r)["licenseId"]
	revoked, err := a.crl.IsRevoked(r.Context(), licenseID)
	if err != nil {
		return gatewayerr.New(http.StatusInternalServerError, gatewayerr.CodeMalformed, err.Error())
	}
	return leghttp.WriteJSON(w, map[string]any{"license_id": licenseID, "revoked": revoked})
}

func (a *RevocationAdmin) list(w http.ResponseWriter, r *http.Request) error {
	entries, err := a.crl.EnumerateWithMetadata(r.Context())
	if err != nil {
		return gatewayerr.New(http.StatusInternalServerError, gatewayerr.CodeMalformed, err.Error())
	}
	return leghttp.WriteJSON(w, entries)
}

func (a *RevocationAdmin) stats(w http.ResponseWriter, r *http.Request) error {
	return leghttp.WriteJSON(w, a.crl.Stats())
}
