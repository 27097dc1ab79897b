package web

// Dashboard page: status header, config form, live alert feed and the
// tracked-symbols table.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Volume Scanner</title>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Press+Start+2P&family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --ink-soft:#9c9c9c;
      --panel:#f6f6f6;
      --alert:#d7263d;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      max-width:1200px;
      margin:0 auto;
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:flex;
      flex-direction:column;
      gap:1.5rem;
    }
    header { display:flex; justify-content:space-between; align-items:center; gap:1rem; }
    .eyebrow {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.2em;
      margin:0;
    }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    .status.running { border-color:#1b9aaa; color:#1b9aaa; }
    .panel {
      border:3px solid var(--ink);
      background:#fff;
      padding:1.2rem;
      box-shadow:6px 6px 0 rgba(0,0,0,.12);
    }
    .panel h2 {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.15em;
      margin:0 0 1rem 0;
      padding-bottom:.8rem;
      border-bottom:2px solid var(--ink);
    }
    .config-grid { display:grid; grid-template-columns:repeat(auto-fit,minmax(180px,1fr)); gap:1rem; }
    label { display:block; font-size:.6rem; text-transform:uppercase; letter-spacing:.1em; color:var(--ink-mid); margin-bottom:.3rem; }
    input, select {
      width:100%;
      border:2px solid var(--ink);
      background:#fff;
      padding:.45rem .6rem;
      font-family:inherit;
      font-size:.8rem;
    }
    .buttons { display:flex; gap:.8rem; margin-top:1rem; flex-wrap:wrap; }
    button {
      border:2px solid var(--ink);
      background:#fff;
      padding:.5rem 1.2rem;
      font-family:inherit;
      font-size:.7rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      cursor:pointer;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    button:active { transform:translate(2px,2px); box-shadow:2px 2px 0 rgba(0,0,0,.15); }
    button.danger { border-color:var(--alert); color:var(--alert); }
    .alert-card {
      border:2px solid var(--alert);
      padding:.8rem 1rem;
      margin-bottom:.8rem;
      font-size:.72rem;
      line-height:1.5;
      background:#fff;
      box-shadow:4px 4px 0 rgba(215,38,61,.15);
    }
    .alert-card .sym { font-weight:700; color:var(--alert); letter-spacing:.08em; }
    .alert-card .meta { color:var(--ink-mid); font-size:.62rem; }
    table { width:100%; border-collapse:collapse; font-size:.7rem; }
    th, td { text-align:left; padding:.4rem .6rem; border-bottom:1px dashed var(--ink-soft); }
    th { text-transform:uppercase; letter-spacing:.1em; font-size:.58rem; color:var(--ink-mid); }
    .empty { color:var(--ink-mid); font-size:.72rem; padding:1rem 0; text-align:center; }
    @media (max-width:640px) { body { padding:1rem; } #app { padding:1.2rem; } }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <p class="eyebrow">bybit volume scanner</p>
      <div id="status" class="status">Loading…</div>
    </header>

    <section class="panel">
      <h2>Configuration</h2>
      <div class="config-grid">
        <div>
          <label for="category">Category</label>
          <select id="category">
            <option value="spot">spot</option>
            <option value="linear">linear</option>
            <option value="inverse">inverse</option>
          </select>
        </div>
        <div>
          <label for="timeframe">Timeframe (hours)</label>
          <input id="timeframe" type="number" min="1" />
        </div>
        <div>
          <label for="threshold">Volume threshold (%)</label>
          <input id="threshold" type="number" step="0.1" />
        </div>
        <div>
          <label for="interval">Check interval (s)</label>
          <input id="interval" type="number" min="1" />
        </div>
      </div>
      <div class="buttons">
        <button id="saveBtn">Save</button>
        <button id="startBtn">Start</button>
        <button id="stopBtn">Stop</button>
        <button id="resetBtn" class="danger">Reset data</button>
      </div>
    </section>

    <section class="panel">
      <h2>Alerts</h2>
      <div id="alerts"><div class="empty">No volume spikes yet.</div></div>
    </section>

    <section class="panel">
      <h2>Tracked symbols</h2>
      <table>
        <thead>
          <tr><th>Symbol</th><th>Current volume</th><th>Avg volume</th><th>Samples</th><th>Last update</th></tr>
        </thead>
        <tbody id="symbols"></tbody>
      </table>
      <div id="symbolsEmpty" class="empty">No tracked symbols yet.</div>
    </section>
  </div>
<script>
const statusEl = document.getElementById('status');
const alertsEl = document.getElementById('alerts');
const symbolsEl = document.getElementById('symbols');
const symbolsEmptyEl = document.getElementById('symbolsEmpty');
const MAX_ALERTS = 50;
let alertsSeen = 0;

const fmt = (n) => {
  const num = parseFloat(n);
  return Number.isFinite(num) ? num.toLocaleString(undefined, {maximumFractionDigits:2}) : '—';
};

async function loadConfig(){
  const res = await fetch('/api/config');
  const cfg = await res.json();
  document.getElementById('category').value = cfg.category;
  document.getElementById('timeframe').value = cfg.timeframe_hours;
  document.getElementById('threshold').value = cfg.volume_increase_threshold;
  document.getElementById('interval').value = cfg.check_interval_seconds;
}

function configPayload(){
  return {
    category: document.getElementById('category').value,
    timeframe_hours: parseInt(document.getElementById('timeframe').value, 10),
    volume_increase_threshold: parseFloat(document.getElementById('threshold').value),
    check_interval_seconds: parseInt(document.getElementById('interval').value, 10)
  };
}

async function post(url, body){
  const res = await fetch(url, {
    method:'POST',
    headers:{'Content-Type':'application/json'},
    body: body ? JSON.stringify(body) : null
  });
  const payload = await res.json();
  if(!res.ok){ alert(payload.error || 'request failed'); }
  return payload;
}

async function refreshStatus(){
  try{
    const res = await fetch('/api/status');
    const st = await res.json();
    if(st.is_running){
      statusEl.textContent = st.first_run ? 'Collecting baseline…' : 'Scanning';
      statusEl.classList.add('running');
    }else{
      statusEl.textContent = 'Stopped';
      statusEl.classList.remove('running');
    }
  }catch(err){
    statusEl.textContent = 'Unreachable';
    statusEl.classList.remove('running');
  }
}

async function refreshSymbols(){
  const res = await fetch('/api/all-symbols');
  const data = await res.json();
  const rows = data.symbols || [];
  symbolsEmptyEl.style.display = rows.length ? 'none' : 'block';
  symbolsEl.innerHTML = '';
  for(const row of rows.slice(0, 100)){
    const tr = document.createElement('tr');
    const updated = row.last_update ? new Date(row.last_update).toLocaleTimeString([], {hour12:false}) : '—';
    tr.innerHTML = '<td>' + row.symbol + '</td>' +
      '<td>' + fmt(row.current_volume) + '</td>' +
      '<td>' + (row.avg_volume === null ? '—' : fmt(row.avg_volume)) + '</td>' +
      '<td>' + row.data_points + '</td>' +
      '<td>' + updated + '</td>';
    symbolsEl.appendChild(tr);
  }
}

function addAlertCard(alert){
  if(alertsSeen === 0){ alertsEl.innerHTML = ''; }
  alertsSeen++;
  const card = document.createElement('div');
  card.className = 'alert-card';
  const ts = alert.timestamp ? new Date(alert.timestamp).toLocaleTimeString([], {hour12:false}) : '';
  card.innerHTML = '<span class="sym">' + alert.symbol + '</span> +' + fmt(alert.volume_change_pct) + '%<br/>' +
    '<span class="meta">vol ' + fmt(alert.current_volume) + ' vs avg ' + fmt(alert.avg_volume) +
    ' · price ' + alert.last_price + ' · ' + ts + '</span>';
  alertsEl.insertBefore(card, alertsEl.firstChild);
  while(alertsEl.children.length > MAX_ALERTS){
    alertsEl.removeChild(alertsEl.lastChild);
  }
}

function connectSSE(){
  const source = new EventSource('/alerts/stream');
  source.addEventListener('alert', (event) => {
    try{ addAlertCard(JSON.parse(event.data)); }
    catch(err){ console.error('alert parse', err); }
  });
  source.addEventListener('error', () => {
    source.close();
    setTimeout(connectSSE, 2000);
  });
}

document.getElementById('saveBtn').addEventListener('click', async () => {
  await post('/api/config', configPayload());
});
document.getElementById('startBtn').addEventListener('click', async () => {
  await post('/api/start', configPayload());
  refreshStatus();
});
document.getElementById('stopBtn').addEventListener('click', async () => {
  await post('/api/stop');
  refreshStatus();
});
document.getElementById('resetBtn').addEventListener('click', async () => {
  if(!confirm('Clear all volume history?')){ return; }
  await post('/api/reset');
  alertsSeen = 0;
  alertsEl.innerHTML = '<div class="empty">No volume spikes yet.</div>';
  refreshSymbols();
});

loadConfig();
refreshStatus();
refreshSymbols();
connectSSE();
setInterval(refreshStatus, 5000);
setInterval(refreshSymbols, 15000);
</script>
</body>
</html>`
