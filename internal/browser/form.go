package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FormData carries the values to type into the widget, already normalized by
// the caller (comma decimals, phone digits).
type FormData struct {
	Account string
	Day     string
	Night   string
	Peak    string
	Email   string
	Phone   string // last 10 digits only
}

// minFilledFields is the discovery threshold: fewer filled fields than this
// means we hit the wrong container (or the form never loaded).
const minFilledFields = 2

// snippetLen caps the page-text excerpt attached to failure messages.
const snippetLen = 500

// ErrFieldsNotFound means neither the widget iframe nor the main document
// yielded enough recognizable form fields.
var ErrFieldsNotFound = errors.New("could not find form fields (form may have changed or not loaded)")

// ErrSubmitNotFound means the fields were filled but no submit control could
// be clicked.
var ErrSubmitNotFound = errors.New("could not find or click submit button")

// SuccessNotFoundError reports a submission whose confirmation text never
// appeared. Snippet holds truncated page text to help diagnose markup changes.
type SuccessNotFoundError struct {
	Snippet string
}

func (e *SuccessNotFoundError) Error() string {
	return fmt.Sprintf("success message not found; page snippet: %s", e.Snippet)
}

// fieldArgs maps the Formy field names/ids to their values. The keys are the
// markup contract with belssb.ru as of the last discovery run.
func fieldArgs(form FormData) map[string]string {
	phoneCountry := ""
	if form.Phone != "" {
		phoneCountry = "7"
	}
	return map[string]string{
		"input-account": form.Account,
		"c_day":         form.Day,
		"c_night":       form.Night,
		"c_peak":        form.Peak,
		"email":         form.Email,
		"phone":         form.Phone,
		"phoneCountry":  phoneCountry,
	}
}

// fillFormJS locates the Formy form and fills it. It anchors on the
// input-account field, recursing through open shadow roots, then fills every
// named input/select in the nearest enclosing container from the args
// dictionary, dispatching bubbling input/change events so the widget's own
// state picks the values up. If the container exposes a submit button it is
// clicked right away.
const fillFormJS = `
(args) => {
	function createEvent(type) {
		return new Event(type, { bubbles: true });
	}
	function findAndFill(root, depth) {
		if (!root || depth > 25) return { filled: 0, submit: null };
		const acc = root.querySelector('input[name="input-account"]') ||
			(root.getElementById ? root.getElementById('input-account') : null);
		if (acc) {
			const container = acc.closest('form') || acc.closest('div') || root;
			let filled = 0;
			container.querySelectorAll('input[name], select[name], input[id]').forEach(el => {
				const name = el.getAttribute('name');
				const id = el.id || '';
				const val = (name && args[name] !== undefined ? String(args[name]) : null)
					|| (id && args[id] !== undefined ? String(args[id]) : null);
				if (val !== null && val !== '') {
					el.value = val;
					el.dispatchEvent(createEvent('input'));
					el.dispatchEvent(createEvent('change'));
					filled++;
				}
			});
			const submit = container.querySelector('button[type=submit]');
			return { filled, submit };
		}
		const list = root.querySelectorAll('*');
		for (let i = 0; i < list.length; i++) {
			if (list[i].shadowRoot) {
				const r = findAndFill(list[i].shadowRoot, depth + 1);
				if (r.filled > 0) return r;
			}
		}
		return { filled: 0, submit: null };
	}
	const r = findAndFill(document, 0);
	if (r.submit) {
		r.submit.click();
		return { filled: r.filled, submitClicked: true };
	}
	return { filled: r.filled, submitClicked: false };
}`

// listFieldNamesJS walks the document and open shadow roots collecting the
// name attributes of inputs/selects, for --debug diagnostics.
const listFieldNamesJS = `
() => {
	const names = [];
	function walk(root, depth) {
		if (!root || depth > 25) return;
		root.querySelectorAll('input[name], select[name]').forEach(el => {
			const n = el.getAttribute('name');
			if (n) names.push(n);
		});
		root.querySelectorAll('*').forEach(el => {
			if (el.shadowRoot) walk(el.shadowRoot, depth + 1);
		});
	}
	walk(document, 0);
	return names;
}`

type fillResult struct {
	Filled        int  `json:"filled"`
	SubmitClicked bool `json:"submitClicked"`
}

// fill runs the fill script against one evaluation target (main page or a
// widget iframe).
func (s *Session) fill(ctx context.Context, target *rod.Page, args map[string]string) (fillResult, error) {
	var result fillResult
	res, err := target.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           fillFormJS,
		JSArgs:       []interface{}{args},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		return result, fmt.Errorf("fill script: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return result, fmt.Errorf("decode fill result: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("decode fill result: %w", err)
	}
	return result, nil
}

// Submit fills the form and waits for the confirmation text. It tries each
// widget iframe first and falls back to the main document when discovery
// there comes up short.
func (s *Session) Submit(ctx context.Context, form FormData) (string, error) {
	frames, err := s.widgetFrames(ctx)
	if err != nil {
		return "", err
	}

	if s.log.Core().Enabled(zapcore.DebugLevel) {
		s.debugFieldNames(ctx, "main", s.page)
		for i, f := range frames {
			s.debugFieldNames(ctx, fmt.Sprintf("widget_frame_%d", i), f)
		}
	}

	args := fieldArgs(form)
	var (
		result fillResult
		target *rod.Page
	)
	for i, frame := range frames {
		r, err := s.fill(ctx, frame, args)
		if err != nil {
			s.log.Debug("fill in widget frame failed", zap.Int("frame", i), zap.Error(err))
			continue
		}
		s.log.Debug("fill attempt in widget frame",
			zap.Int("frame", i),
			zap.Int("filled", r.Filled),
			zap.Bool("submit_clicked", r.SubmitClicked))
		if r.Filled >= minFilledFields {
			result, target = r, frame
			break
		}
	}
	if target == nil {
		r, err := s.fill(ctx, s.page, args)
		if err != nil {
			return "", err
		}
		s.log.Debug("fill attempt in main page",
			zap.Int("filled", r.Filled),
			zap.Bool("submit_clicked", r.SubmitClicked))
		if r.Filled < minFilledFields {
			return "", ErrFieldsNotFound
		}
		result, target = r, s.page
	}

	if !result.SubmitClicked {
		if err := s.clickSubmit(ctx, target); err != nil {
			return "", err
		}
	}

	return s.waitForSuccess(ctx, target)
}

// clickSubmit is the positional fallback when the fill script found no submit
// control in the form container. The main page carries a site-wide search
// submit first, so the form's button is the second one there; inside the
// widget iframe the first submit button is the right one.
func (s *Session) clickSubmit(ctx context.Context, target *rod.Page) error {
	buttons, err := target.Context(ctx).Timeout(s.cfg.SubmitTimeout).Elements("button[type=submit]")
	if err != nil || len(buttons) == 0 {
		return ErrSubmitNotFound
	}
	idx := 0
	if target == s.page && len(buttons) > 1 {
		idx = 1
	}
	if err := buttons[idx].Timeout(s.cfg.SubmitTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.log.Debug("submit click failed", zap.Int("button_index", idx), zap.Error(err))
		return ErrSubmitNotFound
	}
	return nil
}

// waitForSuccess polls the target for the confirmation string; after the
// deadline it scans the full body text once more before giving up with a
// snippet for debugging.
func (s *Session) waitForSuccess(ctx context.Context, target *rod.Page) (string, error) {
	deadline := time.Now().Add(s.cfg.SuccessTimeout)
	for time.Now().Before(deadline) {
		body, err := s.bodyText(ctx, target)
		if err == nil && strings.Contains(body, s.cfg.SuccessText) {
			return s.cfg.SuccessText, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	body, err := s.bodyText(ctx, target)
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	if strings.Contains(body, s.cfg.SuccessText) {
		return s.cfg.SuccessText, nil
	}
	return "", &SuccessNotFoundError{Snippet: truncate(body, snippetLen)}
}

func (s *Session) bodyText(ctx context.Context, target *rod.Page) (string, error) {
	res, err := target.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           `() => document.body ? document.body.innerText : ''`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		return "", fmt.Errorf("body text: %w", err)
	}
	return res.Value.String(), nil
}

func (s *Session) debugFieldNames(ctx context.Context, label string, target *rod.Page) {
	res, err := target.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           listFieldNamesJS,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		s.log.Debug("field name listing failed", zap.String("target", label), zap.Error(err))
		return
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return
	}
	s.log.Debug("discovered field names", zap.String("target", label), zap.Strings("names", names))
}

func containsWidgetHost(url string) bool {
	return strings.Contains(url, widgetHostMarker)
}

func truncate(s string, n int) string {
	if s == "" {
		return "no content"
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
