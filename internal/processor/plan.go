package processor

import "github.com/aliskhannn/image-optimizer/internal/model"

// Widths produced for every family; 0 is the original resolution.
var Widths = []int{480, 767, 0}

// Plan maps a sniffed MIME type to the variants to produce.
// WebP is always planned. PNG sources get a PNG family, JPEG sources a JPEG family.
func Plan(mime string) model.Plan {
	families := []model.Format{model.FormatWebP}

	switch mime {
	case "image/png":
		families = append(families, model.FormatPNG)
	case "image/jpeg":
		families = append(families, model.FormatJPEG)
	}

	plan := make(model.Plan, 0, len(families)*len(Widths))
	for _, f := range families {
		for _, w := range Widths {
			plan = append(plan, model.Variant{Format: f, Width: w})
		}
	}

	return plan
}
