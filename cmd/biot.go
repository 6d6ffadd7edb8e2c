/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/keileg/mastersproject/InputParameters"
	"github.com/keileg/mastersproject/biot"
)

type RunConfig struct {
	DeckFile      string
	Folder        string
	Graph         bool
	Delay         time.Duration
	OverwriteGrid bool
	Profile       bool
	Perf          bool
}

// BiotCmd represents the biot command
var BiotCmd = &cobra.Command{
	Use:   "biot",
	Short: "Coupled flow and mechanics simulation of the ISC stimulation",
	Long: `Coupled flow and mechanics simulation of the ISC stimulation:
a pressure equilibration phase with the well shut in, followed by the
injection phase, both solved with the Biot finite-volume discretization
on the mixed-dimensional fracture grid`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("biot called")
		rc := &RunConfig{}
		if rc.DeckFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		rc.Folder, _ = cmd.Flags().GetString("folder")
		rc.Graph, _ = cmd.Flags().GetBool("graph")
		dr, _ := cmd.Flags().GetInt("delay")
		rc.Delay = time.Duration(time.Duration(dr) * time.Millisecond)
		rc.OverwriteGrid, _ = cmd.Flags().GetBool("overwriteGrid")
		rc.Profile, _ = cmd.Flags().GetBool("profile")
		rc.Perf, _ = cmd.Flags().GetBool("perf")
		params := processDeck(rc)
		RunBiot(rc, params)
	},
}

// processDeck loads the YAML run deck on top of the canonical ISC setup.
// Without a deck the defaults run as-is.
func processDeck(rc *RunConfig) (params *InputParameters.SimulationParameters) {
	var (
		err error
	)
	params = InputParameters.DefaultSimulationParameters()
	if len(rc.DeckFile) != 0 {
		var data []byte
		if data, err = ioutil.ReadFile(rc.DeckFile); err != nil {
			panic(err)
		}
		if err = params.Parse(data); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			exampleFile := `
########################################
Title: "isc-stimulation"
FolderName: results
MeshSize: 10
Borehole: INJ1
Shearzone: S1_2
FlowRateLiter: 3
LengthScale: 0.05
ScalarScale: 1.e+9
NumSteps: 5
SolverType: direct
########################################
`
			fmt.Printf("Example File:%s\n", exampleFile)
			os.Exit(1)
		}
	}
	if len(rc.Folder) != 0 {
		params.FolderName = rc.Folder
	}
	params.Print()
	return
}

func init() {
	rootCmd.AddCommand(BiotCmd)
	BiotCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run deck with input parameters like:\n\t- MeshSize\n\t- FlowRateLiter\n\t- NumSteps")
	BiotCmd.Flags().String("folder", "", "output folder, overrides FolderName from the deck")
	BiotCmd.Flags().BoolP("graph", "g", false, "display a graph of the injection pressure while computing solution")
	BiotCmd.Flags().IntP("delay", "d", 0, "milliseconds of delay for plotting")
	BiotCmd.Flags().Bool("overwriteGrid", false, "rebuild the gmsh grid even if the mesh file exists")
	BiotCmd.Flags().Bool("profile", false, "write a CPU profile to the output folder")
	BiotCmd.Flags().Bool("perf", false, "count retired CPU instructions for the solve")
}

func RunBiot(rc *RunConfig, params *InputParameters.SimulationParameters) {
	if rc.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(params.FolderName)).Stop()
	}
	m, err := biot.New(params)
	if err != nil {
		panic(err)
	}
	defer m.Close()
	if err = m.CreateGrid(rc.OverwriteGrid); err != nil {
		panic(err)
	}
	if rc.Graph {
		// Both phases plot on one axis, so the range covers two run windows.
		m.SetMonitor(biot.NewMonitor(2*m.EndTime, rc.Delay))
	}
	run := func() {
		if err = m.RunBiot(); err != nil {
			panic(err)
		}
	}
	if rc.Perf {
		countInstructions(run)
	} else {
		run()
	}
}
