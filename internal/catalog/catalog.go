// Package catalog loads the channel catalog (types, applications, media and
// templates) from CUE and seeds it through a port.CatalogWriter.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/port"
)

//go:embed schema.cue
var schema string

type TypeSpec struct {
	Name string `json:"name"`
}

type ApplicationSpec struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type MediumSpec struct {
	Type        string `json:"type"`
	Application string `json:"application,omitempty"`
	Active      bool   `json:"active"`
}

type TemplateSpec struct {
	Type    string         `json:"type"`
	Subject string         `json:"subject"`
	Route   string         `json:"route"`
	Data    map[string]any `json:"data"`
}

// Catalog is a decoded catalog file. Map keys are the natural keys of each entity.
type Catalog struct {
	Types        map[string]TypeSpec        `json:"types"`
	Applications map[string]ApplicationSpec `json:"applications"`
	Media        map[string]MediumSpec      `json:"media"`
	Templates    map[string]TemplateSpec    `json:"templates"`
}

// LoadFile reads and validates the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(src, path)
}

// Load validates src against the catalog schema and decodes it.
func Load(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Catalog"))
	if def.Err() != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", def.Err())
	}
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if v.Err() != nil {
		return nil, fmt.Errorf("parse catalog:\n%s", formatError(v.Err()))
	}
	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true), cue.All()); err != nil {
		return nil, fmt.Errorf("invalid catalog:\n%s", formatError(err))
	}

	var c Catalog
	if err := v.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func formatError(err error) string {
	var b strings.Builder
	for _, e := range cueerrors.Errors(err) {
		b.WriteString("  ")
		b.WriteString(e.Error())
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			b.WriteString(" (" + pos[0].String() + ")")
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return err.Error()
	}
	return b.String()
}

// check enforces references between sections.
func (c *Catalog) check() error {
	var problems []string
	for _, name := range sortedKeys(c.Media) {
		m := c.Media[name]
		if _, ok := c.Types[m.Type]; !ok {
			problems = append(problems, fmt.Sprintf("media %q references unknown type %q", name, m.Type))
		}
		if m.Application != "" {
			if _, ok := c.Applications[m.Application]; !ok {
				problems = append(problems, fmt.Sprintf("media %q references unknown application %q", name, m.Application))
			}
		}
	}
	for _, code := range sortedKeys(c.Templates) {
		if _, ok := c.Types[c.Templates[code].Type]; !ok {
			problems = append(problems, fmt.Sprintf("template %q references unknown type %q", code, c.Templates[code].Type))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Stats counts the entities written by Seed.
type Stats struct {
	Types        int
	Applications int
	Media        int
	Templates    int
}

// Seed upserts every entity of c in dependency order.
func Seed(ctx context.Context, c *Catalog, w port.CatalogWriter) (Stats, error) {
	var st Stats
	typeIDs := make(map[string]int64, len(c.Types))
	for _, code := range sortedKeys(c.Types) {
		t := domain.NotificationType{Code: domain.Kind(code), Name: c.Types[code].Name}
		if err := w.UpsertType(ctx, &t); err != nil {
			return st, fmt.Errorf("upsert type %q: %w", code, err)
		}
		typeIDs[code] = t.ID
		st.Types++
	}

	appIDs := make(map[string]int64, len(c.Applications))
	for _, code := range sortedKeys(c.Applications) {
		spec := c.Applications[code]
		a := domain.AuthorizedApplication{Name: spec.Name, Code: code, Token: spec.Token}
		if err := w.UpsertApplication(ctx, &a); err != nil {
			return st, fmt.Errorf("upsert application %q: %w", code, err)
		}
		appIDs[code] = a.ID
		st.Applications++
	}

	for _, name := range sortedKeys(c.Media) {
		spec := c.Media[name]
		m := domain.DeliveryMedium{
			Name:               name,
			NotificationTypeID: typeIDs[spec.Type],
			Kind:               domain.Kind(spec.Type),
			Active:             spec.Active,
		}
		if spec.Application != "" {
			id := appIDs[spec.Application]
			m.AuthorizedApplicationID = &id
		}
		if err := w.UpsertMedium(ctx, &m); err != nil {
			return st, fmt.Errorf("upsert medium %q: %w", name, err)
		}
		st.Media++
	}

	for _, code := range sortedKeys(c.Templates) {
		spec := c.Templates[code]
		t := domain.NotificationTemplate{
			Code:         code,
			Kind:         domain.Kind(spec.Type),
			Subject:      spec.Subject,
			Route:        spec.Route,
			TemplateData: spec.Data,
		}
		if err := w.UpsertTemplate(ctx, &t); err != nil {
			return st, fmt.Errorf("upsert template %q: %w", code, err)
		}
		st.Templates++
	}
	return st, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
