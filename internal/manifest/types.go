package manifest

// Manifest declares the placements an app installs.
type Manifest struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Requires is a semver constraint on the placekit version, e.g. ">= 0.3".
	Requires   string      `yaml:"requires,omitempty" json:"requires,omitempty"`
	EntryFile  string      `yaml:"entry_file,omitempty" json:"entry_file,omitempty"`
	WidgetFile string      `yaml:"widget_file,omitempty" json:"widget_file,omitempty"`
	Placements []Placement `yaml:"placements" json:"placements"`
}

// Placement is one host-UI location to bind the widget into.
type Placement struct {
	Placement   string `yaml:"placement" json:"placement"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Default filenames of the app's entry page and widget page.
const (
	DefaultEntryFile  = "index.html"
	DefaultWidgetFile = "widget.html"
)

// Codes returns the placement codes in declaration order.
func (m *Manifest) Codes() []string {
	codes := make([]string, len(m.Placements))
	for i, p := range m.Placements {
		codes[i] = p.Placement
	}
	return codes
}

// applyDefaults fills filenames and per-placement descriptions left empty.
func (m *Manifest) applyDefaults() {
	if m.EntryFile == "" {
		m.EntryFile = DefaultEntryFile
	}
	if m.WidgetFile == "" {
		m.WidgetFile = DefaultWidgetFile
	}
	for i := range m.Placements {
		if m.Placements[i].Description == "" {
			m.Placements[i].Description = m.Description
		}
	}
}
