package main

import (
	"fmt"
	"os"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/nametemplate"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rename or rewrite items within a backup, offline",
	Long: `Transform reads a backup, applies a rename template (or, with
--recipe, the recipe's name template and name map) to every requested
item, and writes the result to a second backup directory. Field rewrites
are not applied. No controller is contacted. A
recipe with "copy: true" duplicates matched items under a new id instead
of renaming them in place, keeping the original alongside the copy.`,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringSlice("tags", nil, "Tags or kinds to transform (default: all)")
	transformCmd.Flags().String("workdir", "", "Source backup directory")
	transformCmd.Flags().String("output", "", "Destination directory for the transformed backup")
	transformCmd.Flags().String("name-regex", "", "Rename template, e.g. '{name}-v2'")
	transformCmd.Flags().String("recipe", "", "Path to a recipe YAML file driving the rename and copy settings")
	transformCmd.MarkFlagRequired("workdir")
	transformCmd.MarkFlagRequired("output")
}

func runTransform(cmd *cobra.Command, args []string) error {
	tags, _ := cmd.Flags().GetStringSlice("tags")
	workdir, _ := cmd.Flags().GetString("workdir")
	output, _ := cmd.Flags().GetString("output")
	nameRegex, _ := cmd.Flags().GetString("name-regex")
	recipePath, _ := cmd.Flags().GetString("recipe")

	cat := catalog.New()
	kinds, err := resolveTags(cat, tags)
	if err != nil {
		return err
	}

	src, err := store.Open(workdir, false)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := store.Open(output, true)
	if err != nil {
		return err
	}
	defer dst.Close()

	rename := nametemplate.New(nil, nameRegex).Apply
	var copyMode, redirect bool
	if recipePath != "" {
		raw, err := os.ReadFile(recipePath)
		if err != nil {
			return err
		}
		recipe, err := task.LoadRecipe(raw, cat)
		if err != nil {
			return err
		}
		transformer := recipe.Transformer()
		rename = transformer.Apply
		if nameRegex != "" {
			rename = nametemplate.New(nil, nameRegex).Apply
		}
		copyMode = recipe.Copy
		redirect = recipe.RedirectReferences
	}

	o := task.New(cat)
	result, err := o.Transform(src, dst, task.TransformOptions{
		Kinds:    kinds,
		Rename:   rename,
		Copy:     copyMode,
		Redirect: redirect,
	})
	for kind, count := range result.ItemsByKind {
		fmt.Printf("%-30s %d\n", kind, count)
	}
	return err
}
