// File: internal/browser/probe.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsVisible is shared by every probe: an element counts only when it occupies
// layout space and is not hidden by style.
const jsVisible = `const visible = el => {
		const r = el.getBoundingClientRect();
		const st = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	};`

// The interactive elements considered when matching controls by label.
const controlSelectors = `button, a, [role="button"], input[type="submit"]`

// probeAndAct evaluates a JS probe that tags at most one element with tagAttr,
// then runs the chromedp action against the tagged element. Returns false when
// the probe matched nothing; that is a normal outcome, not an error.
func (s *Session) probeAndAct(ctx context.Context, script string, act func(selector string) chromedp.Action) (bool, error) {
	var tagged bool
	if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(script, &tagged)); err != nil {
		return false, fmt.Errorf("probe evaluation failed: %w", err)
	}
	if !tagged {
		return false, nil
	}

	selector := "[" + tagAttr + "]"
	defer s.untag()

	if err := s.run(ctx, s.cfg.Browser.ImplicitWait, act(selector)); err != nil {
		return false, fmt.Errorf("action on probed element failed: %w", err)
	}
	return true, nil
}

// untag removes any leftover probe markers. Best effort.
func (s *Session) untag() {
	script := fmt.Sprintf(
		`document.querySelectorAll('[%s]').forEach(el => el.removeAttribute('%s'));`,
		tagAttr, tagAttr)
	if err := s.run(context.Background(), 5*time.Second, chromedp.Evaluate(script, nil)); err != nil {
		s.logger.Debug("Failed to clear probe marker.", zap.Error(err))
	}
}

func clickAction(selector string) chromedp.Action {
	return chromedp.Tasks{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	}
}

func fillAction(value string) func(selector string) chromedp.Action {
	return func(selector string) chromedp.Action {
		return chromedp.Tasks{
			chromedp.ScrollIntoView(selector, chromedp.ByQuery),
			chromedp.Clear(selector, chromedp.ByQuery),
			chromedp.SendKeys(selector, value, chromedp.ByQuery),
		}
	}
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ClickByLabel clicks the first visible, enabled control whose label contains
// one of the given labels (case-insensitive) and none of the excluded words.
// scope narrows the search to the first element matching the scope selector;
// pass "" for the whole document. Reports whether a click happened.
func (s *Session) ClickByLabel(ctx context.Context, scope string, labels, exclude []string) (bool, error) {
	script := fmt.Sprintf(`(() => {
	const labels = %s.map(x => x.toLowerCase());
	const exclude = %s.map(x => x.toLowerCase());
	const scopeSel = %s;
	const root = scopeSel ? document.querySelector(scopeSel) : document;
	if (!root) return false;
	%s
	for (const el of Array.from(root.querySelectorAll('%s'))) {
		if (!visible(el) || el.disabled) continue;
		const text = ((el.innerText || el.value || '') + '').trim().toLowerCase();
		if (!text) continue;
		if (exclude.some(x => text.includes(x))) continue;
		if (labels.some(x => text.includes(x))) {
			el.setAttribute('%s', '1');
			return true;
		}
	}
	return false;
})()`, mustJSON(labels), mustJSON(exclude), mustJSON(scope), jsVisible, controlSelectors, tagAttr)

	return s.probeAndAct(ctx, script, clickAction)
}

// ClickAnyButtonExcept clicks the first visible button whose label does not
// contain any of the excluded words. Last-resort path for interstitial pages
// whose affirmative control carries an unrecognized label.
func (s *Session) ClickAnyButtonExcept(ctx context.Context, exclude []string) (bool, error) {
	script := fmt.Sprintf(`(() => {
	const exclude = %s.map(x => x.toLowerCase());
	%s
	for (const el of Array.from(document.querySelectorAll('button'))) {
		if (!visible(el) || el.disabled) continue;
		const text = (el.innerText || '').trim().toLowerCase();
		if (!text) continue;
		if (exclude.some(x => text.includes(x))) continue;
		el.setAttribute('%s', '1');
		return true;
	}
	return false;
})()`, mustJSON(exclude), jsVisible, tagAttr)

	return s.probeAndAct(ctx, script, clickAction)
}

// FillFirstEmptyInput types value into the first visible, enabled, empty
// text or telephone input. Reports whether such an input was found.
func (s *Session) FillFirstEmptyInput(ctx context.Context, value string) (bool, error) {
	script := fmt.Sprintf(`(() => {
	%s
	const inputs = Array.from(document.querySelectorAll('input[type="text"], input[type="tel"], input:not([type])'));
	for (const el of inputs) {
		if (!visible(el) || el.disabled || el.value) continue;
		el.setAttribute('%s', '1');
		return true;
	}
	return false;
})()`, jsVisible, tagAttr)

	return s.probeAndAct(ctx, script, fillAction(value))
}

// FillFirstMatchingInput tries each candidate selector in order and fills the
// first visible, enabled, empty match. Reports whether a fill happened.
func (s *Session) FillFirstMatchingInput(ctx context.Context, candidates []string, value string) (bool, error) {
	script := fmt.Sprintf(`(() => {
	const candidates = %s;
	%s
	for (const sel of candidates) {
		let els;
		try { els = Array.from(document.querySelectorAll(sel)); } catch (e) { continue; }
		for (const el of els) {
			if (!visible(el) || el.disabled || el.value) continue;
			el.setAttribute('%s', '1');
			return true;
		}
	}
	return false;
})()`, mustJSON(candidates), jsVisible, tagAttr)

	return s.probeAndAct(ctx, script, fillAction(value))
}
