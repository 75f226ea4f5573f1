package api

const eventsDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Notification Stream - TradeZero Agent</title>
  <style>
    body {
      margin: 0 auto;
      max-width: 860px;
      padding: 24px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }
    a { color: #58a6ff; text-decoration: none; }
    h1, h2 { color: #e6edf3; }
    code, pre { font-family: "SFMono-Regular", Consolas, monospace; font-size: 13px; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    td, th { border: 1px solid #30363d; padding: 6px 10px; text-align: left; }
  </style>
</head>
<body>
  <p><a href="/docs">&larr; API reference</a></p>
  <h1>Notification Stream</h1>
  <p>
    The controller polls the TradeZero notification widget and re-publishes
    entries it has not seen before as Server-Sent Events. Orders placed,
    orders cancelled and locates handled through the API are published on
    their own feeds. Every event is also appended to the JSONL journal.
  </p>

  <h2>Endpoint</h2>
  <pre><code>GET /api/v1/notifications/stream[?feeds=notifications,orders,locates]</code></pre>

  <h2>Resuming</h2>
  <p>
    Each event carries an increasing <code>id</code>. A client reconnecting with a
    <code>Last-Event-ID</code> header (browsers send it automatically) or a
    <code>last_event_id</code> query parameter first receives the retained events
    published after that id, up to the last 128, then the live stream. Idle
    streams receive a <code>: keepalive</code> comment every 15 seconds.
  </p>

  <h2>Feeds</h2>
  <table>
    <tr><th>Feed</th><th>Payload</th></tr>
    <tr><td><code>notifications</code></td><td><code>{"time","title","message"}</code></td></tr>
    <tr><td><code>orders</code></td><td>placed order or <code>{"symbol","order_type","order_ids"}</code> for cancels</td></tr>
    <tr><td><code>locates</code></td><td>locate result or <code>{"symbol","quantity"}</code> for credits</td></tr>
  </table>

  <h2>Example</h2>
  <pre><code>curl -N 'http://127.0.0.1:8288/api/v1/notifications/stream?feeds=notifications'

retry: 3000

id: 42
event: notifications
data: {"time":"10:31:07","title":"Order","message":"Order filled: BUY 100 AAPL @ 189.43"}</code></pre>
  <pre><code>const sse = new EventSource('http://127.0.0.1:8288/api/v1/notifications/stream');
sse.addEventListener('orders', (e) =&gt; console.log(JSON.parse(e.data)));</code></pre>

  <h2>Configuration</h2>
  <pre><code>RELAY_POLL_INTERVAL_MS=1000   # widget poll period, minimum 100
JOURNAL_DIR=./journal</code></pre>
</body>
</html>`
