package api

import (
	"fmt"
	"html"
	"strings"
)

// docsGroup is one entry of the quick-jump bar above the reference.
type docsGroup struct {
	Tag       string
	Operation string
	Hint      string
}

var docsGroups = []docsGroup{
	{"Session", "login", "login and reconnect"},
	{"Market", "get-quote", "quotes load the symbol first"},
	{"Orders", "place-order", "MKT and Stop-MKT need regular hours"},
	{"Portfolio", "list-positions", "open positions"},
	{"Locates", "locate-stock", "short locates in lots of 100"},
	{"Watchlist", "get-watchlist", "restored after every reconnect"},
	{"Account", "get-account", "hidden widgets answer 409"},
	{"Snapshots", "take-snapshot", "screenshots of the trading tab"},
}

var docsHTML = renderDocs(docsGroups)

func renderDocs(groups []docsGroup) string {
	var nav strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&nav, "    <a href=\"#/operations/%s\" title=\"%s\">%s</a>\n",
			html.EscapeString(g.Operation), html.EscapeString(g.Hint), html.EscapeString(g.Tag))
	}
	return fmt.Sprintf(docsTemplate, nav.String())
}

const docsTemplate = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>TradeZero Agent Controller API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { height: 100vh; margin: 0; display: flex; flex-direction: column; background: #0d1117; }
    nav.tz {
      display: flex; gap: 14px; align-items: center; flex-wrap: wrap;
      padding: 8px 16px; border-bottom: 1px solid #30363d; background: #161b22;
      font: 500 12px -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    }
    nav.tz a { color: #8b949e; text-decoration: none; }
    nav.tz a:hover { color: #c9d1d9; }
    nav.tz .brand { color: #c9d1d9; font-weight: 600; margin-right: 6px; }
    nav.tz .stream { margin-left: auto; color: #58a6ff; border: 1px solid #30363d; border-radius: 6px; padding: 4px 10px; }
    elements-api { flex: 1; min-height: 0; }
  </style>
</head>
<body>
  <nav class="tz">
    <span class="brand">TradeZero controller</span>
%s    <a class="stream" href="/docs/events" title="Server-sent events with Last-Event-ID resume">Live notifications (SSE) &rarr;</a>
  </nav>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`
