// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package environment maps the host the client is served from to the base
// URL of its analysis backend.
//
// Resolution is a pure function of the injected host identity and the
// routing table; nothing is read from the ambient environment.
package environment

import (
	"net"
	"net/url"
	"strings"

	"github.com/AleutianAI/resonance/internal/config"
)

// Route names the rule that produced a base URL.
type Route int

const (
	// RouteProduction matched a production host.
	RouteProduction Route = iota

	// RoutePlatform matched a hosting-platform suffix.
	RoutePlatform

	// RouteLocal matched a local development host.
	RouteLocal

	// RouteFallback matched nothing and uses the production URL.
	RouteFallback
)

// String returns a lowercase route name for logs and CLI output.
func (r Route) String() string {
	switch r {
	case RouteProduction:
		return "production"
	case RoutePlatform:
		return "platform"
	case RouteLocal:
		return "local"
	case RouteFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Resolver holds a normalized routing table.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type Resolver struct {
	productionHosts  map[string]struct{}
	productionURL    string
	platformSuffixes []string
	platformPath     string
	localHosts       map[string]struct{}
	localURL         string
}

// NewResolver builds a Resolver from the routing section of the config.
// Host patterns are lowercased; trailing slashes are removed from URLs.
func NewResolver(cfg config.RoutingConfig) *Resolver {
	r := &Resolver{
		productionHosts: make(map[string]struct{}, len(cfg.ProductionHosts)),
		productionURL:   strings.TrimRight(cfg.ProductionURL, "/"),
		platformPath:    strings.TrimRight(cfg.PlatformPath, "/"),
		localHosts:      make(map[string]struct{}, len(cfg.LocalHosts)),
		localURL:        strings.TrimRight(cfg.LocalURL, "/"),
	}
	for _, h := range cfg.ProductionHosts {
		r.productionHosts[strings.ToLower(h)] = struct{}{}
	}
	for _, s := range cfg.PlatformSuffixes {
		r.platformSuffixes = append(r.platformSuffixes, strings.ToLower(s))
	}
	for _, h := range cfg.LocalHosts {
		r.localHosts[strings.ToLower(h)] = struct{}{}
	}
	return r
}

// Default returns a Resolver over config.DefaultConfig().Routing.
func Default() *Resolver {
	return NewResolver(config.DefaultConfig().Routing)
}

// Resolve returns the base URL for host and the rule that matched.
//
// # Description
//
// Rules are evaluated in order and the first match wins:
//
//  1. host is a production host: production URL
//  2. host ends with a platform suffix: {scheme}://{host}{platform path}
//  3. host is a local host or a loopback IP: local URL
//  4. anything else: production URL
//
// Matching is case-insensitive and ignores any port. An empty scheme means
// https.
//
// # Example
//
//	base, route := resolver.Resolve("myapp.azurewebsites.net", "https")
//	// base == "https://myapp.azurewebsites.net/api", route == RoutePlatform
func (r *Resolver) Resolve(host, scheme string) (string, Route) {
	h := normalizeHost(host)

	if _, ok := r.productionHosts[h]; ok {
		return r.productionURL, RouteProduction
	}

	for _, suffix := range r.platformSuffixes {
		if strings.HasSuffix(h, suffix) {
			if scheme == "" {
				scheme = "https"
			}
			u := url.URL{Scheme: strings.ToLower(scheme), Host: h, Path: r.platformPath}
			return u.String(), RoutePlatform
		}
	}

	if _, ok := r.localHosts[h]; ok {
		return r.localURL, RouteLocal
	}
	if ip := net.ParseIP(h); ip != nil && ip.IsLoopback() {
		return r.localURL, RouteLocal
	}

	return r.productionURL, RouteFallback
}

// normalizeHost lowercases host and strips a port or IPv6 brackets.
func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		return hostOnly
	}
	return strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
}
