package browser

import (
	"encoding/json"
	"fmt"
)

// findFn resolves a selector to an array of elements in page context.
const findFn = `function(sel) {
  if (sel.startsWith("/") || sel.startsWith("(")) {
    const r = document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const out = [];
    for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
    return out;
  }
  return Array.from(document.querySelectorAll(sel));
}`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func wrap(selector, body string) string {
	return fmt.Sprintf("(function() { const find = %s; const els = find(%s); %s })()", findFn, jsString(selector), body)
}

// countScript returns the number of matches.
func countScript(selector string) string {
	return wrap(selector, "return els.length;")
}

// clickableScript reports whether the first match exists and is enabled.
func clickableScript(selector string) string {
	return wrap(selector, "const el = els[0]; return !!el && !el.disabled;")
}

// clickScript schedules a click on the first match and reports whether there
// was one. The click runs after Evaluate returns so that an alert raised by
// the page does not block the call.
func clickScript(selector string) string {
	return wrap(selector, "const el = els[0]; if (!el) return false; setTimeout(() => el.click(), 0); return true;")
}

// labelsScript returns {for, text} for every match.
func labelsScript(selector string) string {
	return wrap(selector, `return els.map(el => ({for: el.getAttribute("for") || "", text: (el.innerText || el.textContent || "").trim()}));`)
}

// entriesScript returns {text, onclick} for every match.
func entriesScript(selector string) string {
	return wrap(selector, `return els.map(el => ({text: (el.innerText || el.textContent || "").trim(), onclick: el.getAttribute("onclick") || ""}));`)
}

// scrollScript scrolls the index-th match into view. Negative counts from the end.
func scrollScript(selector string, index int) string {
	return wrap(selector, fmt.Sprintf("const i = %d < 0 ? els.length + %d : %d; const el = els[i]; if (!el) return false; el.scrollIntoView(true); return true;", index, index, index))
}
