// Package templates holds the HTML components of the diary editor.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/classlog/internal/core"
)

// Row is one rendered diary line.
type Row struct {
	Key      string
	Date     string
	Category string
	Suffix   string
	Text     string
	Valid    bool
}

// RowsFrom decodes entries for display. Entries whose key does not parse are
// kept with Valid false so they can still be edited.
func RowsFrom(entries []core.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		row := Row{Key: e.Key, Text: e.Text}
		if date, suffix, ok := core.ParseKey(e.Key); ok {
			row.Date = date.String()
			row.Suffix = suffix
			row.Category = strings.TrimSpace(string(core.Category(suffix)))
			row.Valid = true
		}
		rows[i] = row
	}
	return rows
}

// DiaryPage renders the full editor page.
func DiaryPage(rows []Row, imports core.ImportLimiterStatus) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<p class="meta">%d entries &middot; %d/%d imports running</p>`,
			len(rows), imports.Active, imports.MaxConcurrent); err != nil {
			return err
		}
		if err := EntryTable(rows).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, pageTail)
		return err
	})
}

// EntryTable renders the entries table body, usable on its own for partial
// refreshes.
func EntryTable(rows []Row) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table id="entries"><thead><tr><th>Date</th><th>Type</th><th>Suffix</th><th>Content</th><th></th></tr></thead><tbody>`)
		if len(rows) == 0 {
			b.WriteString(`<tr><td colspan="5" class="empty">No entries yet. Import a spreadsheet or add one above.</td></tr>`)
		}
		for _, r := range rows {
			class := ""
			if !r.Valid {
				class = ` class="invalid"`
			}
			fmt.Fprintf(&b, `<tr%s data-key="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td><button type="button" class="remove">Remove</button></td></tr>`,
				class,
				templ.EscapeString(r.Key),
				templ.EscapeString(r.Date),
				templ.EscapeString(r.Category),
				templ.EscapeString(r.Suffix),
				templ.EscapeString(r.Text),
			)
		}
		b.WriteString(`</tbody></table>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

const pageHead = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Diário de classe</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border-bottom: 1px solid #ddd; padding: .4rem; text-align: left; }
tr.invalid td { color: #a00; }
.meta { color: #555; }
form { display: inline-flex; gap: .5rem; margin-right: 2rem; }
</style>
</head>
<body>
<h1>Diário de classe</h1>
<form id="add"><input name="key" placeholder="DD/MM/AAAA - T" required><input name="text" placeholder="Conteúdo"><button>Add</button></form>
<form id="shift"><input name="amount" type="number" value="0"><select name="unit"><option>days</option><option>months</option><option>years</option></select><select name="category"><option value="all">All</option><option value="T">T</option><option value="P">P</option></select><button>Shift</button></form>
<form id="import"><input name="file" type="file" accept=".xlsx,.xlsm,.csv" required><button>Import</button></form>
`

const pageTail = `
<script>
async function call(method, url, body) {
  const opts = { method, headers: {} };
  if (body instanceof FormData) { opts.body = body; }
  else if (body !== undefined) { opts.body = JSON.stringify(body); opts.headers["Content-Type"] = "application/json"; }
  const res = await fetch(url, opts);
  const data = await res.json();
  if (!res.ok) { alert(data.message + " (" + data.code + "). " + (data.action || "")); throw data; }
  return data;
}
document.getElementById("add").onsubmit = async (e) => {
  e.preventDefault();
  const f = new FormData(e.target);
  await call("POST", "/api/entries", { key: f.get("key"), text: f.get("text") });
  location.reload();
};
document.getElementById("shift").onsubmit = async (e) => {
  e.preventDefault();
  const f = new FormData(e.target);
  await call("POST", "/api/shift", { unit: f.get("unit"), amount: Number(f.get("amount")), category: f.get("category") });
  location.reload();
};
document.getElementById("import").onsubmit = async (e) => {
  e.preventDefault();
  const res = await call("POST", "/api/import", new FormData(e.target));
  alert(res.stats.valid + " valid, " + res.stats.skipped + " skipped");
  location.reload();
};
document.getElementById("entries").onclick = async (e) => {
  if (!e.target.classList.contains("remove")) return;
  await call("DELETE", "/api/entries", { keys: [e.target.closest("tr").dataset.key] });
  location.reload();
};
</script>
</body>
</html>
`
