package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/RowanDark/xorlab/internal/cipher"
	"github.com/RowanDark/xorlab/internal/codec"
	"github.com/RowanDark/xorlab/internal/display"
)

func runOps(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "ops subcommand required")
		return 2
	}
	switch args[0] {
	case "list":
		return runOpsList(ctx, args[1:])
	case "run":
		return runOpsRun(ctx, args[1:])
	case "detect":
		return runOpsDetect(ctx, args[1:])
	case "recipes":
		return runRecipes(ctx, args[1:])
	default:
		fmt.Fprintf(stderr, "unknown ops subcommand: %s\n", args[0])
		return 2
	}
}

func runOpsList(ctx context.Context, args []string) int {
	fs := newFlagSet("ops list")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tREVERSE\tDESCRIPTION")
	for _, op := range cipher.ListOperations() {
		reverse := "-"
		if rev, ok := op.Reverse(); ok {
			reverse = rev.Name()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), reverse, op.Description())
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "print operations: %v\n", err)
		return 1
	}
	return 0
}

// runOpsDetect decodes the input with every text encoding it plausibly uses.
func runOpsDetect(ctx context.Context, args []string) int {
	fs := newFlagSet("ops detect")
	input := fs.String("in", "-", "input file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "usage: xorlab ops detect [-in file]")
		return 2
	}

	r, err := openInput(*input)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}

	results, err := cipher.DecodeAll(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "detect encoding: %v\n", err)
		return 1
	}
	if len(results) == 0 {
		fmt.Fprintln(stdout, "no text encoding matched; input is raw")
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENCODING\tCONFIDENCE\tPREVIEW")
	for _, res := range results {
		preview := "error: " + res.Error
		if res.Success {
			decoded := res.Decoded
			if len(decoded) > display.DefaultPreview {
				decoded = decoded[:display.DefaultPreview]
			}
			preview = display.Printable(decoded, display.DefaultPlaceholder)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", res.Detection.Encoding, res.Detection.Confidence, preview)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "print detections: %v\n", err)
		return 1
	}
	return 0
}

func runOpsRun(ctx context.Context, args []string) int {
	fs := newFlagSet("ops run")
	common := registerCommon(fs, codec.Raw)
	spec := fs.String("pipeline", "", "steps such as hex_decode|xor_byte:key=0x58")
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pipeline, err := cipher.ParsePipeline(*spec)
	if err != nil {
		fmt.Fprintf(stderr, "parse pipeline: %v\n", err)
		return 2
	}
	return executePipeline(ctx, common, pipeline, *reverse)
}

func executePipeline(ctx context.Context, common *commonFlags, pipeline *cipher.Pipeline, reverse bool) int {
	if reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(stderr, "reverse pipeline: %v\n", err)
			return 1
		}
		pipeline = reversed
	}

	env, err := setup(ctx, common)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.close(ctx)

	data, err := env.readJoined(ctx, common)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	env.logger.Debug("running pipeline", "pipeline", pipeline.String())
	result, err := pipeline.Execute(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "run pipeline: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(result))
	return 0
}

func runRecipes(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "recipes subcommand required")
		return 2
	}
	switch args[0] {
	case "list":
		return runRecipesList(ctx, args[1:])
	case "save":
		return runRecipesSave(ctx, args[1:])
	case "run":
		return runRecipesRun(ctx, args[1:])
	case "delete":
		return runRecipesDelete(ctx, args[1:])
	default:
		fmt.Fprintf(stderr, "unknown recipes subcommand: %s\n", args[0])
		return 2
	}
}

func loadRecipes(ctx context.Context) (*cipher.RecipeManager, func(), error) {
	env, err := setup(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	manager := cipher.NewRecipeManager(env.cfg.RecipesDir)
	if err := manager.LoadRecipes(); err != nil {
		env.close(ctx)
		return nil, nil, fmt.Errorf("load recipes: %w", err)
	}
	return manager, func() { env.close(ctx) }, nil
}

func runRecipesList(ctx context.Context, args []string) int {
	fs := newFlagSet("recipes list")
	query := fs.String("search", "", "only show recipes matching this text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	manager, done, err := loadRecipes(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer done()

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPIPELINE\tTAGS\tDESCRIPTION")
	for _, recipe := range manager.SearchRecipes(*query) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", recipe.Name, recipe.Pipeline.String(), strings.Join(recipe.Tags, ","), recipe.Description)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "print recipes: %v\n", err)
		return 1
	}
	return 0
}

func runRecipesSave(ctx context.Context, args []string) int {
	fs := newFlagSet("recipes save")
	name := fs.String("name", "", "recipe name")
	spec := fs.String("pipeline", "", "steps such as base64_decode|xor_repeating:key=ICE")
	description := fs.String("description", "", "what the recipe does")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(stderr, "-name is required")
		return 2
	}
	pipeline, err := cipher.ParsePipeline(*spec)
	if err != nil {
		fmt.Fprintf(stderr, "parse pipeline: %v\n", err)
		return 2
	}

	manager, done, err := loadRecipes(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer done()

	recipe := &cipher.Recipe{
		Name:        strings.TrimSpace(*name),
		Description: *description,
		Tags:        splitTags(*tags),
		Pipeline:    *pipeline,
	}
	if err := manager.SaveRecipe(recipe); err != nil {
		fmt.Fprintf(stderr, "save recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "saved recipe %s\n", recipe.Name)
	return 0
}

func runRecipesRun(ctx context.Context, args []string) int {
	fs := newFlagSet("recipes run")
	common := registerCommon(fs, codec.Raw)
	name := fs.String("name", "", "recipe name")
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	manager, done, err := loadRecipes(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	recipe, ok := manager.GetRecipe(*name)
	done()
	if !ok {
		fmt.Fprintf(stderr, "unknown recipe %q\n", *name)
		return 1
	}
	pipeline := recipe.Pipeline
	return executePipeline(ctx, common, &pipeline, *reverse)
}

func runRecipesDelete(ctx context.Context, args []string) int {
	fs := newFlagSet("recipes delete")
	name := fs.String("name", "", "recipe name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	manager, done, err := loadRecipes(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer done()
	if _, ok := manager.GetRecipe(*name); !ok {
		fmt.Fprintf(stderr, "unknown recipe %q\n", *name)
		return 1
	}
	if err := manager.DeleteRecipe(*name); err != nil {
		fmt.Fprintf(stderr, "delete recipe: %v\n", err)
		return 1
	}
	return 0
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
