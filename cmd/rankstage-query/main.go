// Copyright 2016 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command rankstage-query drives the ranking pipeline against the built-in
// demo fixture from the command line, the same "load an index, run one
// query, print matches" shape as zoekt's cmd/zoekt.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/log"
	"github.com/sourcegraph/rankstage/memindex"
	"github.com/sourcegraph/rankstage/query"
	"github.com/sourcegraph/rankstage/ranker"
)

func main() {
	metricsAddr := flag.String("metrics_addr", "", "if set, serve Prometheus metrics on this address instead of exiting after the query")
	flag.Parse()

	log.Init()
	logger := log.Scoped("rankstage-query")

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: rankstage-query [-metrics_addr addr] <query terms>")
		os.Exit(2)
	}

	idx, err := memindex.NewFixture()
	if err != nil {
		logger.Sugar().Fatalf("building fixture index: %v", err)
	}

	tree := parseQuery(flag.Args())
	if err := query.Validate(tree); err != nil {
		logger.Sugar().Fatalf("invalid query: %v", err)
	}

	builder := ranker.NewCriteriaBuilder(idx)
	wdcache := derive.NewCache()
	fetcher, err := builder.Build(tree, nil, wdcache)
	if err != nil {
		logger.Sugar().Fatalf("building pipeline: %v", err)
	}

	docids, err := fetcher.Drain(wdcache)
	if err != nil {
		logger.Sugar().Fatalf("draining pipeline: %v", err)
	}
	for _, id := range docids {
		fmt.Println(id)
	}

	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		logger.Sugar().Infof("serving metrics on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			logger.Sugar().Fatalf("metrics server: %v", err)
		}
	}
}

// parseQuery turns whitespace-separated terms into an And of leaves. A
// trailing '*' marks a prefix query; a trailing '~N' sets a typo budget.
// This is a deliberately minimal syntax, not a general query language:
// ranking is what this command demonstrates, not parsing.
func parseQuery(terms []string) query.Operation {
	leaves := make([]query.Operation, 0, len(terms))
	for _, t := range terms {
		prefix := strings.HasSuffix(t, "*")
		t = strings.TrimSuffix(t, "*")

		kind := query.Exact(t)
		if i := strings.LastIndexByte(t, '~'); i >= 0 {
			if n, err := strconv.Atoi(t[i+1:]); err == nil {
				kind = query.Tolerant(t[:i], uint8(n))
			}
		}
		leaves = append(leaves, query.NewQuery(kind, prefix))
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	return query.NewAnd(leaves...)
}
