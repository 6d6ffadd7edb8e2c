package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/keileg/mastersproject/fvm"
	"github.com/keileg/mastersproject/mesh"
)

// Parameters obtained from the YAML run deck. Unset fields keep the
// defaults of the ISC stimulation setup, so a deck only lists what it
// changes.
type SimulationParameters struct {
	Title      string `yaml:"Title"`
	FolderName string `yaml:"FolderName"` // root for mesh, viz and log output
	FileName   string `yaml:"FileName"`   // base name of the gmsh file pair
	GmshPath   string `yaml:"GmshPath"`
	DataPath   string `yaml:"DataPath"` // optional CSV override of the intersection table

	ShearzoneNames []string `yaml:"ShearzoneNames"`
	BoundingBox    mesh.Box `yaml:"BoundingBox"`

	MeshSize float64       `yaml:"MeshSize"` // single scale, expanded to MeshArgs
	MeshArgs mesh.MeshArgs `yaml:"MeshArgs"` // explicit sizes, wins over MeshSize

	Borehole      string  `yaml:"Borehole"`  // injection borehole
	Shearzone     string  `yaml:"Shearzone"` // stimulated shear zone
	FlowRateLiter float64 `yaml:"FlowRateLiter"`

	ScalarScale float64 `yaml:"ScalarScale"`
	LengthScale float64 `yaml:"LengthScale"`

	NumSteps   int               `yaml:"NumSteps"`
	SolverType string            `yaml:"SolverType"`
	Newton     fvm.NewtonOptions `yaml:"Newton"`
}

// DefaultSimulationParameters is the canonical ISC stimulation setup: the
// five mapped shear zones inside the experiment volume, injection of
// 3 l/s into S1_2 through borehole INJ1, and a coarse 10 m mesh.
func DefaultSimulationParameters() *SimulationParameters {
	return &SimulationParameters{
		Title:          "isc-stimulation",
		FolderName:     "results",
		FileName:       "gmsh_frac_file",
		GmshPath:       "gmsh",
		ShearzoneNames: []string{"S1_1", "S1_2", "S1_3", "S3_1", "S3_2"},
		BoundingBox:    mesh.Box{XMin: -6, XMax: 80, YMin: 55, YMax: 150, ZMin: 0, ZMax: 50},
		MeshSize:       10,
		Borehole:       "INJ1",
		Shearzone:      "S1_2",
		FlowRateLiter:  3,
		ScalarScale:    1,
		LengthScale:    1,
		NumSteps:       2,
		SolverType:     "direct",
		Newton:         fvm.DefaultNewtonOptions(),
	}
}

func (sp *SimulationParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, sp); err != nil {
		return err
	}
	return sp.Validate()
}

// Validate rejects decks the setup could only fail on later, with the
// offending key in the message.
func (sp *SimulationParameters) Validate() error {
	switch {
	case sp.LengthScale <= 0:
		return fmt.Errorf("LengthScale must be positive, got %g", sp.LengthScale)
	case sp.ScalarScale <= 0:
		return fmt.Errorf("ScalarScale must be positive, got %g", sp.ScalarScale)
	case sp.NumSteps < 1:
		return fmt.Errorf("NumSteps must be at least 1, got %d", sp.NumSteps)
	case sp.Borehole == "":
		return fmt.Errorf("Borehole must name the injection borehole")
	case sp.Shearzone == "":
		return fmt.Errorf("Shearzone must name the stimulated zone")
	case sp.MeshSize <= 0 && sp.MeshArgs.SizeFrac <= 0:
		return fmt.Errorf("either MeshSize or MeshArgs must be set")
	}
	for _, name := range sp.ShearzoneNames {
		if name == sp.Shearzone {
			return nil
		}
	}
	return fmt.Errorf("Shearzone %q is not among ShearzoneNames %v", sp.Shearzone, sp.ShearzoneNames)
}

// Sizes resolves the effective mesh sizes, in scaled length units.
func (sp *SimulationParameters) Sizes() mesh.MeshArgs {
	if sp.MeshArgs.SizeFrac > 0 {
		return sp.MeshArgs
	}
	return mesh.DefaultMeshArgs(sp.MeshSize)
}

func (sp *SimulationParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%s]\t\t= FolderName\n", sp.FolderName)
	fmt.Printf("%v\t= ShearzoneNames\n", sp.ShearzoneNames)
	fmt.Printf("%v\t= BoundingBox\n", sp.BoundingBox)
	fmt.Printf("%v\t\t= MeshArgs\n", sp.Sizes())
	fmt.Printf("[%s -> %s]\t\t= Injection\n", sp.Borehole, sp.Shearzone)
	fmt.Printf("%8.5f\t\t= FlowRateLiter\n", sp.FlowRateLiter)
	fmt.Printf("%8.5f\t\t= LengthScale\n", sp.LengthScale)
	fmt.Printf("%8.5f\t\t= ScalarScale\n", sp.ScalarScale)
	fmt.Printf("[%d]\t\t\t= NumSteps\n", sp.NumSteps)
	fmt.Printf("[%s]\t\t= SolverType\n", sp.SolverType)
	fmt.Printf("%v\t= Newton\n", sp.Newton)
}
