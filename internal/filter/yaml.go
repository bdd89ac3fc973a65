package filter

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadCriteria reads filter criteria from a YAML file. Dates use ISO-8601
// (for example `from: 2024-01-01`). Omitted set keys stay nil and so default
// to the full candidate sets at evaluation time.
func LoadCriteria(path string) (Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Criteria{}, eris.Wrapf(err, "filter: read criteria file %s", path)
	}
	var c Criteria
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Criteria{}, eris.Wrapf(err, "filter: parse criteria file %s", path)
	}
	return c, nil
}
