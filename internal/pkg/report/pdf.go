package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/strogmv/notifyevents/internal/domain"
)

// EventReport is the content of a notification event report.
type EventReport struct {
	Title       string
	GeneratedAt time.Time
	// Filters are printed in the header as label/value pairs, in order.
	Filters [][2]string
	Events  []domain.NotificationEvent
	// Link, when set, is encoded as a QR code that reproduces the listing.
	Link string
}

// Generator generates PDF reports.
type Generator struct{}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateEventReport renders r as a PDF document.
func (g *Generator) GenerateEventReport(r EventReport) ([]byte, error) {
	m := maroto.New()

	title := r.Title
	if title == "" {
		title = "NOTIFICATION EVENTS"
	}
	m.AddRows(
		row.New(20).Add(
			col.New(12).Add(
				text.New(title, props.Text{
					Align: align.Center,
					Size:  18,
					Style: fontstyle.Bold,
				}),
			),
		),
		row.New(8).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Generated %s, %d events", r.GeneratedAt.UTC().Format(time.RFC3339), len(r.Events)), props.Text{
					Align: align.Center,
					Size:  10,
				}),
			),
		),
	)

	for _, f := range r.Filters {
		m.AddRows(
			row.New(6).Add(
				col.New(4).Add(text.New(f[0]+":", props.Text{Size: 9, Style: fontstyle.Bold})),
				col.New(8).Add(text.New(f[1], props.Text{Size: 9})),
			),
		)
	}

	header := props.Text{Size: 9, Style: fontstyle.Bold, Top: 4}
	m.AddRows(
		row.New(12).Add(
			col.New(1).Add(text.New("ID", header)),
			col.New(4).Add(text.New("Recipients", header)),
			col.New(1).Add(text.New("Medium", header)),
			col.New(2).Add(text.New("Status", header)),
			col.New(1).Add(text.New("Tries", header)),
			col.New(3).Add(text.New("Created", header)),
		),
	)

	cell := props.Text{Size: 8}
	for _, e := range r.Events {
		m.AddRows(
			row.New(8).Add(
				col.New(1).Add(text.New(strconv.FormatInt(e.ID, 10), cell)),
				col.New(4).Add(text.New(e.SendTo, cell)),
				col.New(1).Add(text.New(strconv.FormatInt(e.NotificationMediumID, 10), cell)),
				col.New(2).Add(text.New(e.Status.String(), cell)),
				col.New(1).Add(text.New(strconv.Itoa(e.Attempts), cell)),
				col.New(3).Add(text.New(e.CreatedAt.UTC().Format("2006-01-02 15:04"), cell)),
			),
		)
		if e.LastError != nil && *e.LastError != "" {
			m.AddRows(
				row.New(6).Add(
					col.New(1),
					col.New(11).Add(text.New("Last error: "+*e.LastError, props.Text{Size: 7, Style: fontstyle.Italic})),
				),
			)
		}
	}

	if r.Link != "" {
		m.AddRows(
			row.New(40).Add(
				col.New(4).Add(
					code.NewQr(r.Link, props.Rect{
						Percent: 100,
					}),
				),
				col.New(8).Add(
					text.New("Scan to open this listing online.", props.Text{
						Top: 15,
					}),
				),
			),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}
