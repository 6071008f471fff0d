package imgmetrics

import (
	"sort"
	"strings"
)

var registry = []Definition{
	{
		ID:            "IMQ001",
		Name:          "contrast",
		Description:   "Standard deviation of pixel channel values.",
		RequiresImage: true,
		Compute: func(in Input) (Value, error) {
			if in.Frame == nil {
				return UnavailableValue(), nil
			}
			return AvailableValue(in.Frame.Contrast()), nil
		},
	},
	{
		ID:            "IMQ002",
		Name:          "blur",
		Description:   "Variance of the Laplacian over the grayscale image (low means blurry).",
		RequiresImage: true,
		Compute: func(in Input) (Value, error) {
			if in.Frame == nil {
				return UnavailableValue(), nil
			}
			return AvailableValue(in.Frame.Blur()), nil
		},
	},
	{
		ID:            "IMQ003",
		Name:          "orientation",
		Description:   "Image aspect: 0 portrait, 1 landscape, 0.5 square.",
		RequiresImage: true,
		Compute: func(in Input) (Value, error) {
			if in.Frame == nil {
				return UnavailableValue(), nil
			}
			return AvailableValue(in.Frame.Orientation()), nil
		},
	},
	{
		ID:            "IMQ004",
		Name:          "brightness",
		Description:   "Mean of pixel channel values.",
		RequiresImage: true,
		Compute: func(in Input) (Value, error) {
			if in.Frame == nil {
				return UnavailableValue(), nil
			}
			return AvailableValue(in.Frame.Brightness()), nil
		},
	},
	{
		ID:            "IMQ005",
		Name:          "bbox-ratio",
		Description:   "Bounding box area divided by image area.",
		RequiresImage: true,
		Compute: func(in Input) (Value, error) {
			if in.Frame == nil || in.Box == nil || !in.Box.Valid() {
				return UnavailableValue(), nil
			}
			imgArea := float64(in.Frame.Width()) * float64(in.Frame.Height())
			if imgArea == 0 {
				return UnavailableValue(), nil
			}
			return AvailableValue(in.Box.Area() / imgArea), nil
		},
	},
}

// All returns all metrics sorted by ID.
func All() []Definition {
	defs := append([]Definition(nil), registry...)
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].ID < defs[j].ID
	})
	return defs
}

// Lookup searches by metric ID (case-insensitive) or by name.
func Lookup(query string) (Definition, bool) {
	for _, def := range All() {
		if matches(def, query) {
			return def, true
		}
	}
	return Definition{}, false
}

// Resolve resolves user-selected metric names/IDs. Nil or empty names means
// no metrics are enabled.
func Resolve(names []string) ([]Definition, error) {
	if len(names) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(names))
	defs := make([]Definition, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		def, ok := Lookup(name)
		if !ok {
			return nil, unknownMetricErr(name)
		}

		if _, exists := seen[def.ID]; exists {
			continue
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs, nil
}

// ColumnName is the log column a metric is stored under. Metric names use
// dashes for the CLI; columns use underscores like every other field.
func ColumnName(def Definition) string {
	return strings.ReplaceAll(def.Name, "-", "_")
}

func matches(def Definition, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	if strings.EqualFold(def.ID, q) {
		return true
	}
	q = strings.ToLower(q)
	return def.Name == q || ColumnName(def) == strings.ReplaceAll(q, "-", "_")
}

func availableNames() []string {
	defs := All()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}
