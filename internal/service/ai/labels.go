package ai

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	// InputSize is the square network input the YOLO export expects.
	InputSize = 640
	// IoUThreshold is the overlap above which same-class boxes are merged.
	IoUThreshold = 0.45
	// DetectionThreshold is the default minimum class confidence.
	DetectionThreshold = 0.5
)

// DefaultClassNames is the class order of the merged training dataset.
var DefaultClassNames = []string{
	"Broken Pole",
	"Fallen Tree",
	"Garbage",
	"Inclined Pole",
	"Pothole",
}

// Options configures the detector service.
type Options struct {
	ModelPath  string
	ClassNames []string
	// Workers is the number of networks loaded; each serves one request at a time.
	Workers   int
	Threshold float64
}

func (o *Options) applyDefaults() {
	if len(o.ClassNames) == 0 {
		o.ClassNames = DefaultClassNames
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Threshold <= 0 {
		o.Threshold = DetectionThreshold
	}
}

// LoadClassNames reads the `names` entry of a YOLO data.yaml. Both the list
// form and the index-keyed map form are accepted.
func LoadClassNames(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode names: %w", err)
		}
		return names, nil
	case yaml.MappingNode:
		var indexed map[int]string
		if err := doc.Names.Decode(&indexed); err != nil {
			return nil, fmt.Errorf("decode names: %w", err)
		}
		ids := make([]int, 0, len(indexed))
		for id := range indexed {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		names := make([]string, 0, len(ids))
		for i, id := range ids {
			if id != i {
				return nil, fmt.Errorf("class ids are not contiguous: missing %d", i)
			}
			names = append(names, indexed[id])
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%s has no names list", path)
	}
}
