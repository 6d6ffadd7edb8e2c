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

	"github.com/spf13/cobra"

	"github.com/keileg/mastersproject/InputParameters"
	"github.com/keileg/mastersproject/biot"
)

// MechanicsCmd represents the mechanics command
var MechanicsCmd = &cobra.Command{
	Use:   "mechanics",
	Short: "Stationary mechanics solve on the fracture grid",
	Long: `Stationary mechanics solve on the fracture grid: a single
momentum balance with fracture contact, no fluid coupling. With
--convergence N the solve repeats on N uniform grid refinements and
prints the displacement norms per level`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("mechanics called")
		rc := &RunConfig{}
		if rc.DeckFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		rc.Folder, _ = cmd.Flags().GetString("folder")
		rc.OverwriteGrid, _ = cmd.Flags().GetBool("overwriteGrid")
		levels, _ := cmd.Flags().GetInt("convergence")
		params := processDeck(rc)
		RunMechanics(rc, params, levels)
	},
}

func init() {
	rootCmd.AddCommand(MechanicsCmd)
	MechanicsCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run deck with input parameters like:\n\t- MeshSize\n\t- BoundingBox")
	MechanicsCmd.Flags().String("folder", "", "output folder, overrides FolderName from the deck")
	MechanicsCmd.Flags().Bool("overwriteGrid", false, "rebuild the gmsh grid even if the mesh file exists")
	MechanicsCmd.Flags().IntP("convergence", "c", 0, "number of uniform refinement levels for a convergence study")
}

func RunMechanics(rc *RunConfig, params *InputParameters.SimulationParameters, levels int) {
	m, err := biot.New(params)
	if err != nil {
		panic(err)
	}
	defer m.Close()
	if levels > 0 {
		results, err := m.RunConvergenceStudy(levels, rc.OverwriteGrid)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%5s %8s %14s %14s\n", "level", "cells", "max|u|", "mean|u|")
		for _, r := range results {
			fmt.Printf("%5d %8d %14.6e %14.6e\n", r.Level, r.Cells, r.MaxAbsU, r.MeanAbsU)
		}
		return
	}
	if err = m.CreateGrid(rc.OverwriteGrid); err != nil {
		panic(err)
	}
	if err = m.RunStationary(); err != nil {
		panic(err)
	}
}
