package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/port"
)

// payloadTarget selects what a rule inspects.
type payloadTarget int

const (
	targetData payloadTarget = iota
	targetRecipients
)

// payloadRule is one ordered check of a contract. The first failing rule wins.
type payloadRule struct {
	code   string
	target payloadTarget
	path   string
	tag    string
	when   func(data map[string]any) bool
}

// payloadContract is one variant of the per-kind payload union.
type payloadContract interface {
	kind() domain.Kind
	rules() []payloadRule
}

type emailContract struct{}
type pushContract struct{}
type smsContract struct{}
type pushAWSContract struct{}

// permissiveContract covers kinds without a dedicated contract.
type permissiveContract struct{ k domain.Kind }

func contractFor(k domain.Kind) payloadContract {
	switch k {
	case domain.KindEmail:
		return emailContract{}
	case domain.KindPush:
		return pushContract{}
	case domain.KindSMS:
		return smsContract{}
	case domain.KindPushAWS:
		return pushAWSContract{}
	default:
		return permissiveContract{k: k}
	}
}

var genericRules = []payloadRule{
	{code: domain.CodeNoSendTo, target: targetRecipients, tag: "gt=0"},
	{code: domain.CodeNoData, target: targetData, tag: "required"},
}

func (emailContract) kind() domain.Kind { return domain.KindEmail }

func (emailContract) rules() []payloadRule {
	return []payloadRule{
		{code: domain.CodeNoBodyType, path: "type", tag: "mailtype"},
		{code: domain.CodeNoBodyHTML, path: "body", tag: "htmlmarkup", when: fieldEquals("type", "html")},
		{code: domain.CodeNoSendToValid, target: targetRecipients, tag: "dive,email"},
		{code: domain.CodeNoSubject, path: "subject", tag: "required"},
		{code: domain.CodeNoBody, path: "body", tag: "required"},
	}
}

var pushPairs = []struct {
	field string
	code  string
}{
	{"sound", domain.CodeNoNotificationSound},
	{"body", domain.CodeNoNotificationBody},
	{"title", domain.CodeNoNotificationTitle},
	{"content_available", domain.CodeNoContentAvailable},
	{"priority", domain.CodeNoNotificationPriority},
}

func (pushContract) kind() domain.Kind { return domain.KindPush }

func (pushContract) rules() []payloadRule {
	rules := []payloadRule{
		{code: domain.CodeNoDeviceToken, target: targetRecipients, tag: "gt=0,dive,required"},
		{code: domain.CodeNoDataDeviceToken, path: "to", tag: "required"},
		{code: domain.CodeNoPushNotification, path: "notification", tag: "required"},
		{code: domain.CodeNoPushNotification, path: "data", tag: "required"},
	}
	for _, p := range pushPairs {
		rules = append(rules,
			payloadRule{code: p.code, path: "notification." + p.field, tag: "required"},
			payloadRule{code: p.code, path: "data." + p.field, tag: "required"},
		)
	}
	return append(rules,
		payloadRule{code: domain.CodeNoPayload, path: "data.payload", tag: "required"},
		payloadRule{code: domain.CodeNoPayloadMessage, path: "data.payload.message", tag: "required"},
		payloadRule{code: domain.CodeNoPayloadTitle, path: "data.payload.title", tag: "required"},
	)
}

func (smsContract) kind() domain.Kind { return domain.KindSMS }

func (smsContract) rules() []payloadRule {
	return []payloadRule{
		{code: domain.CodeNoMessage, path: "message", tag: "required"},
		{code: domain.CodeNoCountryCode, path: "countryCode", tag: "required", when: fieldEquals("typeSMS", "aws")},
		{code: domain.CodeNoCampaign, path: "campaign", tag: "required", when: fieldEquals("typeSMS", "ice")},
	}
}

func (pushAWSContract) kind() domain.Kind { return domain.KindPushAWS }

func (pushAWSContract) rules() []payloadRule {
	return []payloadRule{
		{code: domain.CodeNoMessage, path: "message", tag: "required"},
	}
}

func (c permissiveContract) kind() domain.Kind { return c.k }

func (permissiveContract) rules() []payloadRule { return nil }

func fieldEquals(path, want string) func(map[string]any) bool {
	return func(data map[string]any) bool {
		v, _ := lookup(data, path)
		s, ok := v.(string)
		return ok && s == want
	}
}

// lookup walks a dotted path through nested JSON objects.
func lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// PayloadValidator enforces the contract of a channel kind on a payload.
type PayloadValidator struct {
	v *validator.Validate
}

func NewPayloadValidator() *PayloadValidator {
	v := validator.New()
	_ = v.RegisterValidation("mailtype", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return false
		}
		return f.String() == "text" || f.String() == "html"
	})
	_ = v.RegisterValidation("htmlmarkup", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return false
		}
		s := f.String()
		return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
	})
	return &PayloadValidator{v: v}
}

// Validate checks sendTo and data against the contract for kind and returns
// a BadRequest carrying the code of the first violated rule.
func (p *PayloadValidator) Validate(kind domain.Kind, sendTo port.Recipients, data map[string]any) error {
	if err := p.apply(genericRules, sendTo, data); err != nil {
		return err
	}
	return p.apply(contractFor(kind).rules(), sendTo, data)
}

func (p *PayloadValidator) apply(rules []payloadRule, sendTo port.Recipients, data map[string]any) error {
	for _, r := range rules {
		if r.when != nil && !r.when(data) {
			continue
		}
		var value any
		switch {
		case r.target == targetRecipients:
			value = []string(sendTo)
		case r.path == "":
			value = data
		default:
			value, _ = lookup(data, r.path)
		}
		if err := p.v.Var(value, r.tag); err != nil {
			return errors.BadRequest(r.code, ruleDetail(r))
		}
	}
	return nil
}

func ruleDetail(r payloadRule) string {
	if r.target == targetRecipients {
		return "sendTo failed " + r.tag
	}
	if r.path == "" {
		return "data failed " + r.tag
	}
	return "data." + r.path + " failed " + r.tag
}
