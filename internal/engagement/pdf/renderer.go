package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/praxis/internal/engagement/domain"
)

type Renderer struct{}

func New() domain.Renderer {
	return &Renderer{}
}

// Render produces the Terms of Engagement letter as a PDF blob.
func (r *Renderer) Render(ctx context.Context, data domain.RenderData) (io.Reader, error) {
	_ = ctx

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Terms of Engagement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(8,
		text.NewCol(12, data.Title, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Client: "+data.ClientName, props.Text{Top: 0}),
			text.New("Project: "+data.ProjectName, props.Text{Top: 4}),
			text.New("Issued: "+data.IssuedAt.Format("2 January 2006"), props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(8,
		text.NewCol(12, "Scope of services", props.Text{
			Size:  11,
			Style: fontstyle.Bold,
		}),
	)
	m.AddRow(40,
		text.NewCol(12, data.ScopeText, props.Text{Size: 9}),
	)

	if len(data.FeeLines) > 0 {
		m.AddRow(10,
			text.NewCol(9, "Fee", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, line := range data.FeeLines {
			m.AddRow(8,
				text.NewCol(9, line.Description, props.Text{Size: 9}),
				text.NewCol(3, formatCents(line.AmountCents), props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	if len(data.SignatureNames) > 0 {
		m.AddRow(10, col.New(12))
		for _, name := range data.SignatureNames {
			m.AddRow(14,
				col.New(6).Add(
					text.New("__________________________", props.Text{Top: 0}),
					text.New(name, props.Text{Top: 6, Size: 9}),
				),
				col.New(6),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
