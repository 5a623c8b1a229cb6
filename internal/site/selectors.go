package site

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectors []byte

// Selectors locates the controls of the search page.
type Selectors struct {
	SearchTab            string `yaml:"search_tab"`
	CategoryList         string `yaml:"category_list"`
	CategoryLabels       string `yaml:"category_labels"`
	ClinicCategoryLabel  string `yaml:"clinic_category_label"`
	DepartmentList       string `yaml:"department_list"`
	DepartmentLabels     string `yaml:"department_labels"`
	SelectAllLabel       string `yaml:"select_all_label"`
	SelectAllDepartments string `yaml:"select_all_departments"`
	SearchButton         string `yaml:"search_button"`
	DownloadButton       string `yaml:"download_button"`
	ResetButton          string `yaml:"reset_button"`
	ResultEntries        string `yaml:"result_entries"`
}

// DefaultSelectors returns the embedded selector set.
func DefaultSelectors() (*Selectors, error) {
	var s Selectors
	if err := yaml.Unmarshal(defaultSelectors, &s); err != nil {
		return nil, eris.Wrap(err, "site: parse embedded selectors")
	}
	return &s, nil
}

// LoadSelectors returns the embedded selectors overlaid with the keys set in
// path. An empty path returns the defaults.
func LoadSelectors(path string) (*Selectors, error) {
	s, err := DefaultSelectors()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "site: read selectors %s", path)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, eris.Wrapf(err, "site: parse selectors %s", path)
	}
	if err := s.validate(); err != nil {
		return nil, eris.Wrapf(err, "site: selectors %s", path)
	}
	return s, nil
}

func (s *Selectors) validate() error {
	required := map[string]string{
		"search_tab":      s.SearchTab,
		"category_labels": s.CategoryLabels,
		"search_button":   s.SearchButton,
		"download_button": s.DownloadButton,
		"result_entries":  s.ResultEntries,
	}
	for key, v := range required {
		if v == "" {
			return eris.Errorf("selector %q is empty", key)
		}
	}
	return nil
}
