package service

import (
	"context"
	"net"
	"net/url"

	"github.com/pkg/browser"

	"github.com/ayusman/palmscroll/internal/config"
	"github.com/ayusman/palmscroll/internal/logger"
)

// DashboardURL returns the page the tray opens for a server listening on
// addr. Wildcard listeners are reached through the loopback address. Without
// a static directory nothing is served at /, so the live preview stream is
// opened instead.
func DashboardURL(addr string, static bool) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}

	u := url.URL{Scheme: "http", Host: host, Path: "/"}
	if !static {
		u.Path = "/api/stream"
	}
	return u.String()
}

// openURL launches the desktop's default browser.
var openURL = browser.OpenURL

// dashboardAction returns the tray callback that opens the dashboard, or nil
// when the HTTP server is disabled.
func dashboardAction(ctx context.Context, cfg *config.Config, opts Options) func() {
	if cfg.Server.Addr == "" {
		return nil
	}
	target := DashboardURL(cfg.Server.Addr, opts.StaticDir != "")
	return func() {
		if err := openURL(target); err != nil {
			logger.WarnKV(ctx, "could not open dashboard", "url", target, "error", err)
			return
		}
		logger.InfoKV(ctx, "dashboard opened", "url", target)
	}
}
