// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	listenAddrFlag = cli.StringFlag{
		Name:  "listen-addr",
		Value: "localhost:8669",
		Usage: "gateway service listening address",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:8670",
		Usage: "administrative API listening address",
	}
	upstreamFlag = cli.StringFlag{
		Name:  "upstream",
		Value: "http://localhost:8080",
		Usage: "upstream service the gateway admits traffic to",
	}
	corsFlag = cli.StringFlag{
		Name:  "cors",
		Value: "",
		Usage: "comma separated list of domains allowed to make cross origin requests",
	}
	keysFileFlag = cli.StringFlag{
		Name:  "keys-file",
		Usage: "path to the JSON key directory file (kid, public_key, status)",
	}
	redisAddrFlag = cli.StringFlag{
		Name:  "redis-addr",
		Usage: "Redis address backing the revocation and rate-limit stores; empty runs in-memory",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5, crit-trace)",
	}
)
