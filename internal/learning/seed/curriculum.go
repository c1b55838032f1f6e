package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_curriculum.yaml
var defaultCurriculum []byte

const defaultItemType = "text"

// Curriculum is the level -> module -> item tree loaded into the content tables.
type Curriculum struct {
	Levels []LevelSpec `yaml:"levels"`
}

type LevelSpec struct {
	Order       int          `yaml:"order"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Modules     []ModuleSpec `yaml:"modules"`
}

type ModuleSpec struct {
	Order       int        `yaml:"order"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Items       []ItemSpec `yaml:"items"`
}

type ItemSpec struct {
	Order   int    `yaml:"order"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Type    string `yaml:"type"`
}

// QuizTitle is the title of the empty quiz created for a module.
func (m ModuleSpec) QuizTitle() string { return m.Title + " Quiz" }

// Default returns the embedded Beginner/Intermediate/Advanced curriculum.
func Default() (*Curriculum, error) {
	return ParseYAML(bytes.NewReader(defaultCurriculum))
}

// Load reads a curriculum from path, picking the format by extension.
func Load(path string) (*Curriculum, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open curriculum: %w", err)
		}
		defer f.Close()
		return ParseYAML(f)
	default:
		return nil, fmt.Errorf("unsupported curriculum format %q", filepath.Ext(path))
	}
}

func ParseYAML(r io.Reader) (*Curriculum, error) {
	var c Curriculum
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Curriculum) normalize() {
	for li := range c.Levels {
		l := &c.Levels[li]
		l.Title = strings.TrimSpace(l.Title)
		for mi := range l.Modules {
			m := &l.Modules[mi]
			m.Title = strings.TrimSpace(m.Title)
			for ii := range m.Items {
				it := &m.Items[ii]
				it.Title = strings.TrimSpace(it.Title)
				it.Type = strings.TrimSpace(it.Type)
				if it.Type == "" {
					it.Type = defaultItemType
				}
			}
		}
	}
}

// Validate checks titles are present and orders are positive and unique per parent.
func (c *Curriculum) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("curriculum has no levels")
	}
	levelOrders := map[int]bool{}
	for _, l := range c.Levels {
		if l.Order < 1 || l.Title == "" {
			return fmt.Errorf("level %q: order must be >= 1 and title non-empty", l.Title)
		}
		if levelOrders[l.Order] {
			return fmt.Errorf("duplicate level order %d", l.Order)
		}
		levelOrders[l.Order] = true

		moduleOrders := map[int]bool{}
		for _, m := range l.Modules {
			if m.Order < 1 || m.Title == "" {
				return fmt.Errorf("level %d module %q: order must be >= 1 and title non-empty", l.Order, m.Title)
			}
			if moduleOrders[m.Order] {
				return fmt.Errorf("level %d: duplicate module order %d", l.Order, m.Order)
			}
			moduleOrders[m.Order] = true

			itemOrders := map[int]bool{}
			for _, it := range m.Items {
				if it.Order < 1 || it.Title == "" || strings.TrimSpace(it.Content) == "" {
					return fmt.Errorf("module %q item %d: order, title and content are required", m.Title, it.Order)
				}
				if itemOrders[it.Order] {
					return fmt.Errorf("module %q: duplicate item order %d", m.Title, it.Order)
				}
				itemOrders[it.Order] = true
			}
		}
	}
	return nil
}

// Counts returns the number of levels, modules and items.
func (c *Curriculum) Counts() (levels, modules, items int) {
	for _, l := range c.Levels {
		levels++
		for _, m := range l.Modules {
			modules++
			items += len(m.Items)
		}
	}
	return levels, modules, items
}
