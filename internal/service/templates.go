package service

import (
	"context"
	"fmt"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
)

// Context keys a caller may override on stored template defaults.
var templateOverrides = map[domain.Kind][]string{
	domain.KindSMS:     {"message", "typeSMS", "countryCode", "campaign"},
	domain.KindPush:    {"message", "platformArn", "payload", "title"},
	domain.KindPushAWS: {"message", "platformArn", "payload", "title"},
}

func (s *NotificationEventsImpl) loadTemplate(ctx context.Context, code string, tplCtx map[string]any) (*domain.NotificationTemplate, error) {
	if code == "" || tplCtx == nil {
		return nil, errors.BadRequest(domain.CodeNoTemplateCtx, "templateCode and context are required when data is absent")
	}
	tpl, err := s.Templates.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.Processing(domain.CodeNoTemplate, fmt.Errorf("find template %q: %w", code, err))
	}
	if tpl == nil {
		return nil, errors.NotFound(domain.CodeNoTemplate, fmt.Sprintf("template %q does not exist", code))
	}
	return tpl, nil
}

// buildFromTemplate produces a payload equivalent to a raw submission.
func (s *NotificationEventsImpl) buildFromTemplate(ctx context.Context, tpl *domain.NotificationTemplate, tplCtx map[string]any) (map[string]any, error) {
	if tpl.Kind == domain.KindEmail {
		body, err := s.Renderer.Render(ctx, tpl.Route, tplCtx)
		if err != nil {
			return nil, errors.Processing(domain.CodeRenderTemplate, fmt.Errorf("render %q: %w", tpl.Route, err))
		}
		return map[string]any{
			"subject": tpl.Subject,
			"body":    body,
			"type":    "html",
		}, nil
	}

	keys, ok := templateOverrides[tpl.Kind]
	if !ok {
		return nil, errors.BadRequest(domain.CodeUnsupportedTmpl, fmt.Sprintf("template %q has unsupported type %q", tpl.Code, tpl.Kind))
	}
	data := make(map[string]any, len(tpl.TemplateData)+len(keys))
	for k, v := range tpl.TemplateData {
		data[k] = v
	}
	for _, k := range keys {
		if v, ok := tplCtx[k]; ok {
			data[k] = v
		}
	}
	return data, nil
}
