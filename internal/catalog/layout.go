package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/newthinker/datacheck/internal/core"
)

// fieldWidths lists the strftime directives a file layout may use and the
// number of digits each one occupies in a file name.
var fieldWidths = map[byte]int{
	'Y': 4,
	'y': 2,
	'm': 2,
	'd': 2,
	'j': 3,
	'H': 2,
	'M': 2,
	'S': 2,
}

// fileLayout matches names against a strftime-style layout. Literal text is
// matched verbatim so digits in it ("era5_", ".h5") never become date fields.
type fileLayout struct {
	pattern *regexp.Regexp
	format  string
	depth   int
}

func compileLayout(layout string) (*fileLayout, error) {
	var (
		expr    strings.Builder
		literal strings.Builder
		fields  []string
		seen    = make(map[byte]bool)
	)
	flush := func() {
		expr.WriteString(regexp.QuoteMeta(literal.String()))
		literal.Reset()
	}

	expr.WriteString("^")
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' {
			literal.WriteByte(c)
			continue
		}
		if i+1 == len(layout) {
			return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q ends with a bare %%", layout)
		}
		i++
		spec := layout[i]
		if spec == '%' {
			literal.WriteByte('%')
			continue
		}
		width, ok := fieldWidths[spec]
		if !ok {
			return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q: unsupported directive %%%c", layout, spec)
		}
		if seen[spec] {
			return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q repeats %%%c", layout, spec)
		}
		seen[spec] = true

		flush()
		expr.WriteString(`(\d{` + strconv.Itoa(width) + `})`)
		fields = append(fields, "%"+string(spec))
	}
	flush()
	expr.WriteString("$")

	if len(fields) == 0 {
		return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q has no date directives", layout)
	}
	if !seen['Y'] && !seen['y'] {
		return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q needs a year (%%Y or %%y)", layout)
	}
	if seen['Y'] && seen['y'] {
		return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q has both %%Y and %%y", layout)
	}

	// Captured fields are rejoined with a separator so variable-width Go
	// parsing of %m, %d and friends cannot run into the next field.
	format := strings.Join(fields, "-")
	if _, err := strftime.Layout(format); err != nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q: %v", layout, err)
	}

	pattern, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "catalog layout %q: %v", layout, err)
	}
	return &fileLayout{
		pattern: pattern,
		format:  format,
		depth:   strings.Count(layout, "/") + 1,
	}, nil
}

// match returns the timestamp encoded in name, which must span exactly the
// layout's path depth.
func (l *fileLayout) match(name string) (time.Time, bool) {
	m := l.pattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := strftime.Parse(l.format, strings.Join(m[1:], "-"))
	if err != nil {
		return time.Time{}, false
	}
	return core.NormalizeTime(t), true
}
