package provenance

import "html/template"

var pageTemplate = template.Must(template.New("provenance").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Settlement Provenance Report</title>
<style>
:root { --bg:#f8fafc; --card:#fff; --border:#e2e8f0; --text:#1e293b; --text2:#64748b; --accent:#0d9488; --warn:#f59e0b; --err:#ef4444; }
* { margin:0; padding:0; box-sizing:border-box; }
body { font-family:Inter,-apple-system,sans-serif; background:var(--bg); color:var(--text); line-height:1.5; }
.container { max-width:1100px; margin:0 auto; padding:24px; }
h1 { font-size:1.4rem; margin-bottom:4px; }
.subtitle { color:var(--text2); font-size:.85rem; margin-bottom:20px; }
.meta { display:flex; gap:20px; flex-wrap:wrap; margin-bottom:20px; font-size:.8rem; color:var(--text2); }
.meta strong { color:var(--text); }
.picker { display:flex; gap:10px; margin-bottom:20px; }
.picker select { padding:8px 12px; border:1px solid var(--border); border-radius:8px; min-width:380px; background:var(--card); }
.picker button { padding:6px 14px; border:1px solid var(--border); border-radius:6px; background:var(--card); cursor:pointer; }
.card { background:var(--card); border:1px solid var(--border); border-radius:12px; padding:18px; margin-bottom:14px; }
.card-title { font-size:.7rem; text-transform:uppercase; letter-spacing:.05em; color:var(--text2); margin-bottom:10px; font-weight:600; }
.stats { display:grid; grid-template-columns:repeat(auto-fit,minmax(130px,1fr)); gap:14px; }
.stat .val { font-size:1.3rem; font-weight:700; font-variant-numeric:tabular-nums; }
.stat .lbl { font-size:.65rem; text-transform:uppercase; color:var(--text2); }
.tbl { width:100%; border-collapse:collapse; font-size:.78rem; margin-top:8px; }
.tbl th { text-align:left; padding:6px 8px; border-bottom:2px solid var(--border); font-size:.68rem; text-transform:uppercase; color:var(--text2); }
.tbl td { padding:5px 8px; border-bottom:1px solid #f1f5f9; font-variant-numeric:tabular-nums; }
.tbl .r { text-align:right; }
.flag { display:inline-block; padding:2px 8px; border-radius:4px; font-size:.68rem; font-weight:600; margin-left:6px; background:#fef3c7; color:#92400e; }
.prov { margin-top:8px; padding:10px 14px; background:#f1f5f9; border-radius:8px; font-size:.78rem; }
.prov .row { display:flex; gap:8px; margin-bottom:3px; }
.prov .label { color:var(--text2); min-width:150px; }
details { margin-top:8px; }
summary { cursor:pointer; font-size:.8rem; color:var(--accent); padding:4px 0; }
.detail-wrap { max-height:420px; overflow-y:auto; }
.empty { padding:48px; text-align:center; color:var(--text2); }
</style>
</head>
<body>
<div class="container">
  <h1>Settlement Provenance Report</h1>
  <p class="subtitle">Traces every settlement figure back to its source rows — run {{.RunID}}</p>
  <div class="meta" id="meta"></div>
  <div class="picker">
    <select id="sel" onchange="render()"></select>
    <button onclick="nav(-1)">&#9664; Prev</button>
    <button onclick="nav(1)">Next &#9654;</button>
  </div>
  <div id="detail"><div class="empty">Select a settlement above</div></div>
</div>
<script>
const DATA = {{.Data}};
const S = DATA.settlements;
const fmt = (v, d) => v == null ? '—' : v.toLocaleString('en-GB', {minimumFractionDigits: d||2, maximumFractionDigits: d||2});
const esc = s => String(s ?? '').replace(/</g,'&lt;').replace(/>/g,'&gt;');

document.getElementById('meta').innerHTML =
  '<span>Customer: <strong>'+esc(DATA.customer)+'</strong></span>' +
  '<span>GLN: <strong>'+esc(DATA.supplierGln)+'</strong></span>' +
  '<span>Supplier: <strong>'+esc(DATA.supplierName)+'</strong></span>' +
  '<span>Settlements: <strong>'+S.length+'</strong></span>' +
  '<span>Extracted: <strong>'+esc(DATA.extractedAt)+'</strong></span>';

const sel = document.getElementById('sel');
S.forEach((s, i) => {
  const o = document.createElement('option');
  o.value = i;
  o.textContent = s.start.slice(0,10)+' → '+s.end.slice(0,10)+'  |  '+fmt(s.kwh,1)+' kWh  |  '+fmt(s.total)+' DKK';
  sel.appendChild(o);
});

function nav(dir) {
  const i = parseInt(sel.value) + dir;
  if (i >= 0 && i < S.length) { sel.value = i; render(); }
}

function render() {
  const s = S[parseInt(sel.value)];
  if (!s) return;
  let h = '';

  h += '<div class="card"><div class="card-title">Settlement</div><div class="stats">';
  h += '<div class="stat"><div class="val">'+s.start.slice(0,10)+'</div><div class="lbl">Period start</div></div>';
  h += '<div class="stat"><div class="val">'+s.end.slice(0,10)+'</div><div class="lbl">Period end</div></div>';
  h += '<div class="stat"><div class="val">'+fmt(s.kwh,2)+'</div><div class="lbl">kWh</div></div>';
  h += '<div class="stat"><div class="val">'+fmt(s.margin)+'</div><div class="lbl">Margin DKK</div></div>';
  h += '<div class="stat"><div class="val">'+fmt(s.total)+'</div><div class="lbl">Total DKK</div></div>';
  h += '</div></div>';

  (s.tariffs || []).forEach(t => {
    const warn = t.avg > 5;
    h += '<div class="card"><div class="card-title">Tariff: '+esc(t.desc)+' ['+esc(t.id)+']'+(warn ? '<span class="flag">CHECK — avg rate looks like a subscription amount</span>' : '')+'</div>';
    h += '<div class="stats">';
    h += '<div class="stat"><div class="val">'+fmt(t.amount)+'</div><div class="lbl">Amount DKK</div></div>';
    h += '<div class="stat"><div class="val">'+fmt(t.energy,2)+'</div><div class="lbl">kWh</div></div>';
    h += '<div class="stat"><div class="val">'+fmt(t.avg,6)+'</div><div class="lbl">Avg DKK/kWh</div></div>';
    h += '</div>';
    if (t.prov) {
      const p = t.prov;
      h += '<div class="prov">';
      h += '<div class="row"><span class="label">Selected rate start:</span><span>'+esc(p.rateStartDate)+'</span></div>';
      h += '<div class="row"><span class="label">Rate kind:</span><span>'+(p.isHourly ? 'Hourly differentiated' : 'Flat')+'</span></div>';
      h += '<div class="row"><span class="label">Flat rate:</span><span>'+fmt(p.flatRate,6)+' DKK/kWh</span></div>';
      h += '<div class="row"><span class="label">Candidate rows:</span><span>'+p.candidateRateCount+(p.candidateRateCount > 50 ? ' <span class="flag">HIGH</span>' : '')+'</span></div>';
      h += '<div class="row"><span class="label">Selection rule:</span><span>'+esc(p.selectionRule)+'</span></div>';
      h += '</div>';
    }
    h += '</div>';
  });

  const hours = s.hours || [];
  if (hours.length > 0) {
    h += '<div class="card"><div class="card-title">Hourly pricing ('+hours.length+' rows)</div>';
    h += '<details><summary>Show all hours</summary><div class="detail-wrap">';
    h += '<table class="tbl"><thead><tr><th>Hour</th><th class="r">kWh</th><th class="r">Spot</th><th class="r">Calculated</th><th class="r">Margin</th></tr></thead><tbody>';
    hours.forEach(r => {
      h += '<tr><td>'+esc(r.ts)+'</td><td class="r">'+fmt(r.kwh,4)+'</td><td class="r">'+fmt(r.spot,6)+'</td><td class="r">'+fmt(r.calc,6)+'</td><td class="r">'+fmt(r.calc - r.spot,6)+'</td></tr>';
    });
    h += '</tbody></table></div></details></div>';
  }

  document.getElementById('detail').innerHTML = h;
}

if (S.length > 0) { sel.value = 0; render(); }
</script>
</body>
</html>
`))
