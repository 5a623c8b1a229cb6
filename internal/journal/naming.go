package journal

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rotisserie/eris"

	"github.com/sells-group/harvest-cli/internal/model"
)

// ErrNameCollision is returned when a rendered target is already taken.
var ErrNameCollision = eris.New("name collision")

var placeholderRe = regexp.MustCompile(`\{([a-z_]*)\}`)

// knownPlaceholders maps template keys to the value they expand to. The
// category/dept aliases keep the historical per-variant templates working.
var knownPlaceholders = map[string]bool{
	"label":     true,
	"category":  true,
	"dept":      true,
	"id":        true,
	"slug":      true,
	"timestamp": true,
	"ext":       true,
}

var unsafeChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// Rule is a file naming template over {label, timestamp, ext} and aliases.
type Rule struct {
	template string
}

// Vars are the inputs to a Rule.
type Vars struct {
	Item      model.WorkItem
	Timestamp string
	Ext       string // including the leading dot
}

// ParseRule validates a template such as "{category}_auto_{timestamp}{ext}".
func ParseRule(template string) (Rule, error) {
	if strings.TrimSpace(template) == "" {
		return Rule{}, eris.New("naming: empty template")
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !knownPlaceholders[m[1]] {
			return Rule{}, eris.Errorf("naming: unknown placeholder {%s} in %q", m[1], template)
		}
	}
	return Rule{template: template}, nil
}

// MustRule is ParseRule for templates known at compile time.
func MustRule(template string) Rule {
	r, err := ParseRule(template)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the template.
func (r Rule) String() string { return r.template }

// Render expands the template. The result depends only on v.
func (r Rule) Render(v Vars) string {
	label := unsafeChars.Replace(strings.TrimSpace(v.Item.Label))
	return placeholderRe.ReplaceAllStringFunc(r.template, func(ph string) string {
		switch ph[1 : len(ph)-1] {
		case "label", "category", "dept":
			return label
		case "id":
			return unsafeChars.Replace(v.Item.ID)
		case "slug":
			return slug.Make(v.Item.Label)
		case "timestamp":
			return v.Timestamp
		case "ext":
			return v.Ext
		}
		return ph
	})
}

// Namer hands out unique targets inside one directory for one run.
type Namer struct {
	rule Rule
	dir  string
	used map[string]model.WorkItem
}

// NewNamer creates a Namer placing targets in dir.
func NewNamer(rule Rule, dir string) *Namer {
	return &Namer{rule: rule, dir: dir, used: make(map[string]model.WorkItem)}
}

// Reserve renders the target path for v and claims it. It fails with
// ErrNameCollision if another item of this run already claimed it or a file
// already exists there.
func (n *Namer) Reserve(v Vars) (string, error) {
	path := filepath.Join(n.dir, n.rule.Render(v))
	if prev, ok := n.used[path]; ok {
		return "", eris.Wrapf(ErrNameCollision, "%s already assigned to %s (%s)", filepath.Base(path), prev.Label, prev.ID)
	}
	if _, err := os.Stat(path); err == nil {
		return "", eris.Wrapf(ErrNameCollision, "%s already exists", path)
	}
	n.used[path] = v.Item
	return path, nil
}
