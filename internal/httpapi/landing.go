package httpapi

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DocChat</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 720px; width: 92%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  input[type=text] { width: 100%; padding: 0.6rem; border-radius: 8px; border: 1px solid #334155; background: #0f172a; color: #e2e8f0; }
  button { margin-top: 0.5rem; padding: 0.5rem 1rem; border: 0; border-radius: 8px; background: #38bdf8; color: #0f172a; font-weight: 600; cursor: pointer; }
  button:disabled { opacity: 0.5; cursor: default; }
  #log { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; min-height: 8rem; max-height: 24rem; overflow-y: auto; font-size: 0.9rem; line-height: 1.5; }
  .user { color: #a5b4fc; margin-top: 0.5rem; }
  .bot { white-space: pre-wrap; }
  .err { color: #f87171; }
  .status { color: #94a3b8; font-size: 0.85rem; margin-top: 0.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
</style>
</head>
<body>
<div class="card">
  <h1>DocChat</h1>
  <p class="subtitle">Upload a PDF, markdown or text file, then ask questions about it.</p>

  <div class="section">
    <div class="section-title">Document</div>
    <form id="upload">
      <input type="file" name="pdf" accept=".pdf,.md,.markdown,.txt" required>
      <button type="submit">Upload</button>
    </form>
    <p id="upload-status" class="status"></p>
  </div>

  <div class="section">
    <div class="section-title">Chat</div>
    <div id="log"></div>
    <form id="chat">
      <input type="text" name="message" placeholder="Ask a question about the document" autocomplete="off">
      <button type="submit">Send</button>
    </form>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP</p>
    <p><a href="/health" class="endpoint">/health</a> Health check</p>
  </div>
</div>
<script>
const log = document.getElementById("log");
function append(cls, text) {
  const p = document.createElement("p");
  p.className = cls;
  p.textContent = text;
  log.appendChild(p);
  log.scrollTop = log.scrollHeight;
}
document.getElementById("upload").addEventListener("submit", async (e) => {
  e.preventDefault();
  const status = document.getElementById("upload-status");
  status.textContent = "Processing...";
  const res = await fetch("/api/upload", { method: "POST", body: new FormData(e.target) });
  const body = await res.json();
  status.textContent = res.ok
    ? body.message + " (" + body.pageCount + " pages, " + body.chunkCount + " chunks)"
    : body.error + (body.details ? ": " + body.details : "");
});
document.getElementById("chat").addEventListener("submit", async (e) => {
  e.preventDefault();
  const input = e.target.message;
  const message = input.value.trim();
  if (!message) return;
  input.value = "";
  append("user", message);
  const button = e.target.querySelector("button");
  button.disabled = true;
  try {
    const res = await fetch("/api/chat", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ message }),
    });
    const body = await res.json();
    if (res.ok) append("bot", body.response);
    else append("err", body.error);
  } finally {
    button.disabled = false;
  }
});
</script>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the upload and chat page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
