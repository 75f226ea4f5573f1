package cdpcontrol

import "encoding/json"

// jsFindHelper provides _find/_findAll for the three locator strategies and
// the _ok/_missing envelope builders shared by every DOM script.
const jsFindHelper = `
function _find(by, value) {
  if (by === "id") return document.getElementById(value);
  if (by === "xpath") {
    return document.evaluate(value, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  }
  return document.querySelector(value);
}
function _findAll(by, value) {
  var out = [];
  if (by === "id") {
    var one = document.getElementById(value);
    if (one) out.push(one);
    return out;
  }
  if (by === "xpath") {
    var snap = document.evaluate(value, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    for (var i = 0; i < snap.snapshotLength; i++) out.push(snap.snapshotItem(i));
    return out;
  }
  var nl = document.querySelectorAll(value);
  for (var j = 0; j < nl.length; j++) out.push(nl[j]);
  return out;
}
function _text(el) {
  if (el.innerText !== undefined && el.innerText !== null) return String(el.innerText);
  return String(el.textContent || "");
}
function _ok(data) { return JSON.stringify({ok:true,data:data}); }
function _fail(code, msg) { return JSON.stringify({ok:false,error_code:code,error_message:msg}); }
function _missing(by, value) { return _fail("` + CodeElementNotFound + `", "no element matches " + by + "=" + value); }
`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func wrapJSEval(body string) string {
	return "(function(){\n" + `try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

// withElement wraps body so it runs with `el` bound to the first match of
// loc, short-circuiting with ELEMENT_NOT_FOUND otherwise.
func withElement(loc Locator, body string) string {
	return wrapJSEval(jsFindHelper + `
var el = _find(` + jsString(loc.By) + `, ` + jsString(loc.Value) + `);
if (!el) return _missing(` + jsString(loc.By) + `, ` + jsString(loc.Value) + `);
` + body)
}
