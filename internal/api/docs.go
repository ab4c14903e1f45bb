package api

// docsHTML documents the push channel, which OpenAPI cannot describe, above
// the rendered REST reference from /openapi.json.
const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Chat Relay API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { margin: 0; background: #0d1117; color: #c9d1d9; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; }
    header { display: flex; justify-content: space-between; align-items: center; padding: 12px 24px; background: #161b22; border-bottom: 1px solid #30363d; }
    header a { color: #58a6ff; text-decoration: none; font-size: 13px; }
    section.push { max-width: 960px; margin: 0 auto; padding: 16px 24px; font-size: 14px; line-height: 1.6; }
    code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 12px; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 10px 12px; overflow: auto; }
    table { border-collapse: collapse; width: 100%; }
    td { border-top: 1px solid #30363d; padding: 6px 8px; vertical-align: top; }
    .api { height: 75vh; border-top: 1px solid #30363d; }
  </style>
</head>
<body>
  <header>
    <strong>Chat Relay</strong>
    <span><a href="/">Open viewer</a> &middot; <a href="/metrics">Metrics</a> &middot; <a href="/openapi.json">openapi.json</a></span>
  </header>
  <section class="push">
    <h2>Viewer push channel: <code>GET /ws</code></h2>
    <p>A WebSocket of JSON text frames shaped <code>{"type": ..., "payload": ...}</code>.
    The first frame after connecting is always the buffered history, oldest first.
    Every later record arrives once, live, in commit order.</p>
    <table>
      <tr><td><code>history</code></td><td>server to viewer</td><td><code>[Record, ...]</code></td></tr>
      <tr><td><code>message</code></td><td>server to viewer</td><td><code>Record</code></td></tr>
      <tr><td><code>error</code></td><td>server to the sending viewer only</td><td><code>{"op":"send","to":"...","error":"..."}</code></td></tr>
      <tr><td><code>send</code></td><td>viewer to server</td><td><code>{"to":"...","text":"..."}</code>; frames with an empty recipient or text are ignored</td></tr>
    </table>
    <p>Record:</p>
    <pre>{"from": "36301234567@c.us", "name": "Anna", "text": "hi", "t": 1700000000000,
 "media": {"mimetype": "image/png", "data": "&lt;base64&gt;"}}</pre>
    <p><code>text</code> and <code>media</code> are optional. <code>t</code> is the receipt time in
    milliseconds and never decreases along the history. Sent messages echo back as
    <code>from: "self"</code> when local echo is on.</p>
    <h2>REST</h2>
    <p><code>POST /api/v1/send</code> answers 202 once the account accepts the message;
    400 for a missing recipient or text, 503 while the account is unreachable, 504 on
    an account timeout, 502 when the account rejects the send.</p>
  </section>
  <div class="api">
    <elements-api
      apiDescriptionUrl="/openapi.json"
      router="hash"
      layout="sidebar"
      tryItCredentialsPolicy="same-origin"
      darkMode
    />
  </div>
</body>
</html>`
