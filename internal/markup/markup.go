// Package markup renders the responsive <picture> fragment for a set of variants.
package markup

import (
	"fmt"
	"html"
	"strings"

	"github.com/aliskhannn/image-optimizer/internal/model"
)

// breakpoints pairs each width slot with its media query, in entry order.
var breakpoints = []struct {
	width int
	media string
}{
	{480, "(max-width: 480px)"},
	{767, "(max-width: 767px)"},
	{0, "(min-width: 768px)"},
}

// Render returns the <picture> markup referencing the variants by entry name.
// WebP sources always come first; a PNG family, or failing that a JPEG family,
// adds fallback sources and a plain <img>.
func Render(variants []model.EncodedVariant) string {
	families := group(variants)

	var b strings.Builder
	b.WriteString("<picture>\n")

	if webp, ok := families[model.FormatWebP]; ok {
		b.WriteString("  <!-- load webp in different sizes if browser supports it -->\n")
		writeSources(&b, model.FormatWebP, webp)
	}

	for _, f := range []model.Format{model.FormatPNG, model.FormatJPEG} {
		names, ok := families[f]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "  <!-- load %s in different sizes if browser doesn't support webp -->\n", f.Ext())
		writeSources(&b, f, names)
		writeFallback(&b, names)
		break
	}

	b.WriteString("</picture>")

	return b.String()
}

// group indexes entry names by format and width. Families missing any of the
// three widths are dropped.
func group(variants []model.EncodedVariant) map[model.Format]map[int]string {
	byFormat := make(map[model.Format]map[int]string)
	for _, v := range variants {
		if byFormat[v.Format] == nil {
			byFormat[v.Format] = make(map[int]string, len(breakpoints))
		}
		byFormat[v.Format][v.Width] = html.EscapeString(v.Name)
	}

	for f, names := range byFormat {
		for _, bp := range breakpoints {
			if _, ok := names[bp.width]; !ok {
				delete(byFormat, f)
				break
			}
		}
	}

	return byFormat
}

func writeSources(b *strings.Builder, f model.Format, names map[int]string) {
	for _, bp := range breakpoints {
		fmt.Fprintf(b, "  <source media=\"%s\" srcset=\"%s\" type=\"%s\">\n", bp.media, names[bp.width], f.MIME())
	}
}

func writeFallback(b *strings.Builder, names map[int]string) {
	b.WriteString("  <!-- fallback in different sizes, as well as regular src -->\n")
	fmt.Fprintf(b,
		"  <img srcset=\"%s 480w, %s 767w\" sizes=\"(max-width: 480px) 480px, (max-width: 767px) 768px\" src=\"%s\" alt=\"image description\">\n",
		names[480], names[767], names[0],
	)
}
