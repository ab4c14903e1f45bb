package api

// viewerPageHTML is the shared chat view. It renders the history frame, then
// live messages, and sends replies over the same push channel.
const viewerPageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Chat Relay - shared view</title>
<style>
body { font-family: sans-serif; background:#f4f4f4; margin:0; }
.header { display:flex; justify-content:space-between; align-items:center; max-width:800px; margin:10px auto; font-size:18px; }
.status { font-size:12px; color:#888; margin-left:8px; }
.clock { color:#ffd106; font-weight:bold; }
.messages { max-width:800px; height:60vh; margin:0 auto 20px; padding:10px; background:#fff; border-radius:8px; overflow:auto; }
.msg { margin:10px 0; padding:8px 12px; background:#eef; border-radius:6px; }
.msg.self { background:#dfd; }
.meta { font-size:12px; color:#666; margin-bottom:4px; }
.reply-btn, .del-btn { margin-left:5px; font-size:11px; padding:2px 6px; cursor:pointer; }
.error { max-width:800px; margin:0 auto; color:#b00020; font-size:13px; min-height:1em; }
form { display:flex; gap:10px; max-width:800px; margin:10px auto; }
.target { width:200px; padding:8px; border-radius:6px; border:1px solid #ccc; }
.reply { flex:1; padding:8px; border-radius:6px; border:1px solid #ccc; }
button[type=submit] { padding:8px 14px; border:none; border-radius:6px; background:#4caf50; color:#fff; font-weight:bold; cursor:pointer; }
.media { max-width:100%; margin-top:8px; border-radius:6px; }
.emoji-row { display:flex; flex-wrap:wrap; gap:5px; max-width:800px; margin:10px auto; }
.emoji-btn { cursor:pointer; font-size:20px; border:none; background:none; }
</style>
</head>
<body>
<div class="header">
  <div>Chat Relay - shared view and reply<span class="status" id="status">connecting</span></div>
  <div class="clock" id="clock">--:--:--</div>
</div>
<div class="messages" id="messages"></div>
<div class="error" id="error"></div>
<form id="chatForm">
  <input type="text" class="target" id="target" placeholder="Recipient (pick Reply)" readonly>
  <input type="text" class="reply" id="reply" placeholder="Type a message..." required>
  <button type="submit">Send</button>
</form>
<div class="emoji-row" id="emojiContainer"></div>

<script>
const messagesEl = document.getElementById('messages');
const targetInput = document.getElementById('target');
const replyInput = document.getElementById('reply');
const errorEl = document.getElementById('error');
const statusEl = document.getElementById('status');
const emojiContainer = document.getElementById('emojiContainer');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss' : 'ws') + '://' + location.host + '/ws');

ws.onopen = () => { statusEl.textContent = 'live'; };
ws.onclose = () => { statusEl.textContent = 'disconnected'; };
ws.onerror = () => { statusEl.textContent = 'error'; };

function pad(n) { return String(n).padStart(2, '0'); }
function updateClock() {
  const now = new Date();
  document.getElementById('clock').textContent = pad(now.getHours()) + ':' + pad(now.getMinutes()) + ':' + pad(now.getSeconds());
}
setInterval(updateClock, 1000);
updateClock();

function addMessage(msg) {
  const wrap = document.createElement('div');
  wrap.className = 'msg';
  if (msg.from === 'self') wrap.classList.add('self');

  const meta = document.createElement('div');
  meta.className = 'meta';
  meta.textContent = (msg.name || msg.from) + ' @ ' + new Date(msg.t).toLocaleString();

  const replyBtn = document.createElement('button');
  replyBtn.textContent = 'Reply';
  replyBtn.className = 'reply-btn';
  replyBtn.onclick = () => { targetInput.value = msg.from; replyInput.focus(); };
  meta.appendChild(replyBtn);

  // Hides the message in this page only.
  const delBtn = document.createElement('button');
  delBtn.textContent = 'Delete';
  delBtn.className = 'del-btn';
  delBtn.onclick = () => wrap.remove();
  meta.appendChild(delBtn);

  wrap.appendChild(meta);
  if (msg.text) wrap.appendChild(document.createTextNode(msg.text));
  if (msg.media && msg.media.data) {
    const img = document.createElement('img');
    img.src = 'data:' + msg.media.mimetype + ';base64,' + msg.media.data;
    img.className = 'media';
    wrap.appendChild(img);
  }

  messagesEl.appendChild(wrap);
  messagesEl.scrollTop = messagesEl.scrollHeight;
}

ws.onmessage = ev => {
  const { type, payload } = JSON.parse(ev.data);
  if (type === 'history') payload.forEach(addMessage);
  if (type === 'message') addMessage(payload);
  if (type === 'error') errorEl.textContent = 'Send to ' + (payload.to || '?') + ' failed: ' + payload.error;
};

document.getElementById('chatForm').addEventListener('submit', e => {
  e.preventDefault();
  const text = replyInput.value.trim();
  const to = targetInput.value;
  if (!text || !to) { alert('Pick a recipient with Reply first.'); return; }
  errorEl.textContent = '';
  ws.send(JSON.stringify({ type: 'send', payload: { to, text } }));
  replyInput.value = '';
});

const emojiCategories = {
  smileys: ['😀','😃','😄','😁','😆','😅','😂','🤣','🥲','☺️','😊','😇','🙂','🙃','😉','😍','🥰','😘'],
  hearts: ['❤️','💔','💖','💙','💚','💛','💜','🖤'],
  gestures: ['👍','👎','👌','✌️','🤞','🤟','🤘','👏','🙏']
};
for (const cat in emojiCategories) {
  emojiCategories[cat].forEach(e => {
    const btn = document.createElement('button');
    btn.type = 'button';
    btn.textContent = e;
    btn.className = 'emoji-btn';
    btn.onclick = () => { replyInput.value += e; replyInput.focus(); };
    emojiContainer.appendChild(btn);
  });
}
</script>
</body>
</html>`
