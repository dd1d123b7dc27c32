// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/seatrace-io/leg/api/admin/apilogs"
	healthAPI "github.com/seatrace-io/leg/api/admin/health"
	"github.com/seatrace-io/leg/api/admin/loglevel"
	"github.com/seatrace-io/leg/api/admin/revocationadmin"
	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/revocation"
)

// New mounts the gateway's administrative surface (§6.6): log level
// and request-logging toggles (ambient ops tooling, unchanged from the
// teacher), liveness health, and revocation list management.
func New(logLevel *slog.LevelVar, health *healthAPI.Health, apiLogsToggle *atomic.Bool, crl *revocation.CRL, sink correlation.Sink) http.HandlerFunc {
	router := mux.NewRouter()
	subRouter := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(subRouter, "/loglevel")
	healthAPI.NewAPI(health).Mount(subRouter, "/health")
	apilogs.New(apiLogsToggle).Mount(subRouter, "/apilogs")
	revocationadmin.New(crl, sink).Mount(subRouter, "/revocations")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
