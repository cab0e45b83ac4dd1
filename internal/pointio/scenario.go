package pointio

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/sim"
)

// WindowSpec is a declarative window description, as found in scenario
// files and API requests.
type WindowSpec struct {
	// Type is one of "rectangle", "disc" or "polygon".
	Type string  `yaml:"type" json:"type"`
	XMin float64 `yaml:"xmin" json:"xmin,omitempty"`
	XMax float64 `yaml:"xmax" json:"xmax,omitempty"`
	YMin float64 `yaml:"ymin" json:"ymin,omitempty"`
	YMax float64 `yaml:"ymax" json:"ymax,omitempty"`
	// Center and Radius describe a disc.
	Center []float64 `yaml:"center" json:"center,omitempty"`
	Radius float64   `yaml:"radius" json:"radius,omitempty"`
	// Vertices describe a polygon ring inline.
	Vertices [][]float64 `yaml:"vertices" json:"vertices,omitempty"`
	// GeoJSON is a path to a polygon geometry file, an alternative to
	// inline vertices.
	GeoJSON string `yaml:"geojson" json:"geojson,omitempty"`
}

// Build constructs the described window.
func (s *WindowSpec) Build() (geom.Window, error) {
	switch s.Type {
	case "rectangle", "rect":
		return geom.NewRect(s.XMin, s.XMax, s.YMin, s.YMax)
	case "disc", "circle":
		if len(s.Center) != 2 {
			return nil, eris.Wrapf(geom.ErrInvalidGeometry,
				"pointio: disc center needs 2 coordinates, got %d", len(s.Center))
		}
		return geom.NewDisc(geom.Point{X: s.Center[0], Y: s.Center[1]}, s.Radius)
	case "polygon":
		if s.GeoJSON != "" {
			return ReadWindowGeoJSON(s.GeoJSON)
		}
		vertices := make([]geom.Point, len(s.Vertices))
		for i, v := range s.Vertices {
			if len(v) != 2 {
				return nil, eris.Wrapf(geom.ErrInvalidGeometry,
					"pointio: polygon vertex %d needs 2 coordinates, got %d", i, len(v))
			}
			vertices[i] = geom.Point{X: v[0], Y: v[1]}
		}
		return geom.NewPolygon(vertices)
	default:
		return nil, eris.Wrapf(geom.ErrInvalidGeometry, "pointio: unknown window type %q", s.Type)
	}
}

// ProcessSpec is a declarative null-model description.
type ProcessSpec struct {
	// Type is one of "poisson", "matern" or "thomas".
	Type      string  `yaml:"type" json:"type"`
	Intensity float64 `yaml:"intensity" json:"intensity,omitempty"`
	// Cluster process parameters.
	ParentIntensity float64 `yaml:"parent_intensity" json:"parent_intensity,omitempty"`
	Radius          float64 `yaml:"radius" json:"radius,omitempty"`
	Sigma           float64 `yaml:"sigma" json:"sigma,omitempty"`
	Mu              float64 `yaml:"mu" json:"mu,omitempty"`
}

// Build constructs the described process.
func (s *ProcessSpec) Build() (sim.Process, error) {
	switch s.Type {
	case "poisson", "csr":
		return sim.PoissonCSR{Intensity: s.Intensity}, nil
	case "matern":
		return sim.MaternCluster{
			ParentIntensity: s.ParentIntensity,
			Radius:          s.Radius,
			Mu:              s.Mu,
		}, nil
	case "thomas":
		return sim.ThomasCluster{
			ParentIntensity: s.ParentIntensity,
			Sigma:           s.Sigma,
			Mu:              s.Mu,
		}, nil
	default:
		return nil, eris.Wrapf(sim.ErrInvalidParameter, "pointio: unknown process type %q", s.Type)
	}
}

// Scenario bundles a window and a null model, mirroring the options-file
// invocation of the CLI.
type Scenario struct {
	Window  WindowSpec  `yaml:"window" json:"window"`
	Process ProcessSpec `yaml:"process" json:"process"`
	Seed    uint64      `yaml:"seed" json:"seed"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pointio: read scenario %s", path)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrapf(err, "pointio: parse scenario %s", path)
	}
	return &sc, nil
}
