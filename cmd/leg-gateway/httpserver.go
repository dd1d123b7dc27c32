// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/seatrace-io/leg/internal/co"
)

// startServer binds addr and serves handler in the background, mirroring
// cmd/thor/httpserver.StartAPIServer's listen/serve/close shape. It
// logs and exits the process on a listen failure since both of the
// gateway's servers are required for the process to do anything useful.
func startServer(addr string, handler http.Handler) func() {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Crit("listen failed", "addr", addr, "err", errors.Wrapf(err, "listen %v", addr))
		os.Exit(1)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		_ = srv.Serve(listener)
	})

	return func() {
		srv.Close()
		goes.Wait()
	}
}
