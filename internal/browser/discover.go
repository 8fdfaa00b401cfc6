package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// FieldInfo describes one visible form control found during discovery.
type FieldInfo struct {
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
}

// ButtonInfo describes a clickable submit candidate.
type ButtonInfo struct {
	Tag  string `json:"tag"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// IframeInfo records an embedded frame seen on the page.
type IframeInfo struct {
	Src string `json:"src"`
	ID  string `json:"id"`
}

// FormReport is the structure dump used to keep the field-name contract in
// fieldArgs up to date when belssb.ru changes its markup.
type FormReport struct {
	Inputs      []FieldInfo  `json:"inputs"`
	Buttons     []ButtonInfo `json:"buttons"`
	Iframes     []IframeInfo `json:"iframes"`
	ShadowHosts []string     `json:"shadowHosts"`
}

// collectFormJS walks the document and open shadow roots collecting form
// controls, buttons, iframes, and shadow hosts.
const collectFormJS = `
() => {
	const result = { inputs: [], buttons: [], iframes: [], shadowHosts: [] };
	function walk(root, depth) {
		if (!root || depth > 20) return;
		try {
			root.querySelectorAll('input:not([type=hidden]), select, textarea').forEach(el => {
				const label = el.labels && el.labels[0] ? el.labels[0].textContent.trim() : '';
				result.inputs.push({
					tag: el.tagName,
					type: el.type || '',
					name: el.name || el.id || '',
					id: el.id || '',
					placeholder: (el.placeholder || '').slice(0, 80),
					label: label.slice(0, 120),
					required: !!el.required
				});
			});
			root.querySelectorAll('button, [type=submit], input[type=submit]').forEach(el => {
				result.buttons.push({
					tag: el.tagName,
					type: el.type || '',
					text: (el.textContent || el.value || '').trim().slice(0, 80)
				});
			});
			root.querySelectorAll('iframe').forEach(f => {
				result.iframes.push({ src: f.src || '', id: f.id || '' });
			});
			root.querySelectorAll('*').forEach(el => {
				if (el.shadowRoot) {
					result.shadowHosts.push(el.tagName + (el.id ? '#' + el.id : ''));
					walk(el.shadowRoot, depth + 1);
				}
			});
		} catch (e) {}
	}
	walk(document, 0);
	return result;
}`

// Discover dumps the form structure of the page and of every widget iframe.
// Keys of the returned map are "main" and "widget_frame_<n>".
func (s *Session) Discover(ctx context.Context) (map[string]FormReport, error) {
	reports := make(map[string]FormReport)

	main, err := s.collectReport(ctx, s.page)
	if err != nil {
		return nil, err
	}
	reports["main"] = main

	frames, err := s.widgetFrames(ctx)
	if err != nil {
		return nil, err
	}
	for i, frame := range frames {
		report, err := s.collectReport(ctx, frame)
		if err != nil {
			// A cross-origin frame that refuses evaluation is still worth
			// the rest of the report.
			continue
		}
		reports[fmt.Sprintf("widget_frame_%d", i)] = report
	}
	return reports, nil
}

func (s *Session) collectReport(ctx context.Context, target *rod.Page) (FormReport, error) {
	var report FormReport
	res, err := target.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           collectFormJS,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		return report, fmt.Errorf("discovery script: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return report, fmt.Errorf("decode discovery result: %w", err)
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		return report, fmt.Errorf("decode discovery result: %w", err)
	}
	return report, nil
}
