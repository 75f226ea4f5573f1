package cdpcontrol

import "strconv"

// ReadTextScript returns a script reading the rendered text (innerText) of
// the first match. Both drivers use it so text splitting stays identical.
func ReadTextScript(loc Locator) string {
	return withElement(loc, `return _ok(_text(el));`)
}

func ReadTextsScript(loc Locator) string {
	return wrapJSEval(jsFindHelper + `
var els = _findAll(` + jsString(loc.By) + `, ` + jsString(loc.Value) + `);
var out = [];
for (var i = 0; i < els.length; i++) out.push(_text(els[i]));
return _ok(out);`)
}

// jsFocus focuses the element, optionally clearing its value first so the
// following insertText replaces rather than appends.
func jsFocus(loc Locator, clear bool) string {
	body := `el.focus();`
	if clear {
		body += `
if ("value" in el) {
  el.value = "";
  el.dispatchEvent(new Event("input", {bubbles:true}));
}`
	}
	return withElement(loc, body+`
return _ok(true);`)
}

func jsClick(loc Locator) string {
	return withElement(loc, `el.click();
return _ok(true);`)
}

// SelectByIndexScript returns a script choosing option index of a <select>.
func SelectByIndexScript(loc Locator, index int) string {
	return withElement(loc, `
var idx = `+strconv.Itoa(index)+`;
if (!el.options || idx < 0 || idx >= el.options.length) {
  return _fail("`+CodeValidation+`", "option index " + idx + " out of range");
}
el.selectedIndex = idx;
el.dispatchEvent(new Event("input", {bubbles:true}));
el.dispatchEvent(new Event("change", {bubbles:true}));
return _ok(String(el.options[idx].text || ""));`)
}

// SelectByTextScript returns a script choosing the option whose visible
// text equals text.
func SelectByTextScript(loc Locator, text string) string {
	return withElement(loc, `
var want = `+jsString(text)+`;
var opts = el.options || [];
for (var i = 0; i < opts.length; i++) {
  if (String(opts[i].text || "").trim() === want) {
    el.selectedIndex = i;
    el.dispatchEvent(new Event("input", {bubbles:true}));
    el.dispatchEvent(new Event("change", {bubbles:true}));
    return _ok(i);
  }
}
return _fail("`+CodeElementNotFound+`", "no option with text " + want);`)
}

func jsGetAttribute(loc Locator, name string) string {
	return withElement(loc, `
var v = el.getAttribute(`+jsString(name)+`);
return _ok(v === null ? "" : String(v));`)
}

func jsSetAttribute(loc Locator, name, value string) string {
	return withElement(loc, `el.setAttribute(`+jsString(name)+`, `+jsString(value)+`);
return _ok(true);`)
}

func jsOuterHTML(loc Locator) string {
	return withElement(loc, `return _ok(String(el.outerHTML || ""));`)
}
