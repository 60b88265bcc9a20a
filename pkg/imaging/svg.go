package imaging

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

type svgDims struct {
	width, height         int
	viewWidth, viewHeight int
}

// svgDimensions reads width, height and viewBox from the root element.
// Missing width/height fall back to the viewBox and vice versa.
func svgDimensions(data []byte) (svgDims, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return svgDims{}, errors.New("no svg root element")
		}
		if err != nil {
			return svgDims{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return svgDims{}, errors.New("no svg root element")
		}

		var dims svgDims
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "width":
				dims.width = svgLength(a.Value)
			case "height":
				dims.height = svgLength(a.Value)
			case "viewBox":
				fields := strings.FieldsFunc(a.Value, func(r rune) bool { return r == ' ' || r == ',' })
				if len(fields) == 4 {
					dims.viewWidth = svgLength(fields[2])
					dims.viewHeight = svgLength(fields[3])
				}
			}
		}
		if dims.width == 0 || dims.height == 0 {
			dims.width, dims.height = dims.viewWidth, dims.viewHeight
		}
		if dims.viewWidth == 0 || dims.viewHeight == 0 {
			dims.viewWidth, dims.viewHeight = dims.width, dims.height
		}
		return dims, nil
	}
}

// svgLength parses absolute lengths ("120", "120px", "120.5"). Relative
// units yield zero.
func svgLength(value string) int {
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, "px")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int(math.Round(f))
}

var (
	svgPolicyOnce sync.Once
	svgPolicy     *bluemonday.Policy
)

// The HTML tokenizer lowercases attribute names; SVG needs them back in
// camel case when loaded as an image.
var svgAttrCase = strings.NewReplacer(
	" viewbox=", " viewBox=",
	" preserveaspectratio=", " preserveAspectRatio=",
	" clippathunits=", " clipPathUnits=",
	"<clippath", "<clipPath",
	"</clippath>", "</clipPath>",
)

func sanitizeSVG(data []byte) []byte {
	cleaned := strings.TrimSpace(svgSanitizer().Sanitize(string(data)))
	return []byte(svgAttrCase.Replace(cleaned))
}

func svgSanitizer() *bluemonday.Policy {
	svgPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		shapes := []string{"path", "circle", "rect", "line", "polyline", "polygon", "ellipse"}
		policy.AllowElements(append([]string{"svg", "g", "title", "desc", "defs", "use", "clipPath"}, shapes...)...)

		policy.AllowAttrs(
			"xmlns", "viewBox", "width", "height", "fill", "stroke",
			"stroke-width", "preserveAspectRatio", "class",
		).OnElements("svg")
		policy.AllowAttrs("href", "xlink:href", "clip-path").OnElements("use")
		policy.AllowAttrs(
			"d", "cx", "cy", "r", "x", "y", "x1", "y1", "x2", "y2",
			"points", "rx", "ry", "width", "height", "fill", "stroke",
			"stroke-width", "stroke-linecap", "stroke-linejoin", "opacity",
			"transform", "class",
		).OnElements(shapes...)
		policy.AllowAttrs("id", "clipPathUnits").OnElements("clipPath")
		policy.AllowAttrs("id", "transform", "fill").OnElements("g")
		policy.AllowAttrs("id").OnElements("defs")

		svgPolicy = policy
	})
	return svgPolicy
}
