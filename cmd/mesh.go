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

// MeshCmd represents the mesh command
var MeshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Build the gmsh fracture grid without solving",
	Long: `Build the gmsh fracture grid without solving anything on it.
Useful for inspecting mesh quality and cell counts before committing to
a simulation, and with --refinements N for preparing a refinement ladder`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("mesh called")
		rc := &RunConfig{}
		if rc.DeckFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		rc.Folder, _ = cmd.Flags().GetString("folder")
		rc.OverwriteGrid, _ = cmd.Flags().GetBool("overwriteGrid")
		refinements, _ := cmd.Flags().GetInt("refinements")
		params := processDeck(rc)
		RunMesh(rc, params, refinements)
	},
}

func init() {
	rootCmd.AddCommand(MeshCmd)
	MeshCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run deck with input parameters like:\n\t- MeshSize\n\t- BoundingBox")
	MeshCmd.Flags().String("folder", "", "output folder, overrides FolderName from the deck")
	MeshCmd.Flags().Bool("overwriteGrid", false, "rebuild the gmsh grid even if the mesh file exists")
	MeshCmd.Flags().IntP("refinements", "r", 0, "number of uniform refinement levels to mesh beyond the base grid")
}

func RunMesh(rc *RunConfig, params *InputParameters.SimulationParameters, refinements int) {
	m, err := biot.New(params)
	if err != nil {
		panic(err)
	}
	defer m.Close()
	if refinements > 0 {
		hs, err := m.CreateRefined(refinements, rc.OverwriteGrid)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%5s %8s %8s\n", "level", "cells", "grids")
		for lvl, h := range hs {
			fmt.Printf("%5d %8d %8d\n", lvl, h.NumCells(), len(h.Grids()))
		}
		return
	}
	if err = m.CreateGrid(rc.OverwriteGrid); err != nil {
		panic(err)
	}
	h := m.Hierarchy
	fmt.Printf("%d grids, %d cells, %d interfaces\n",
		len(h.Grids()), h.NumCells(), len(h.Interfaces))
}
