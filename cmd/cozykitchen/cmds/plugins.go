package cmds

import (
	"context"
	"os"
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	glazed_cmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/mb0/glob"
)

// PluginsCommand emits one row per function plans can call.
type PluginsCommand struct {
	*glazed_cmds.CommandDescription
}

var _ glazed_cmds.GlazeCommand = &PluginsCommand{}

func NewPluginsCommand() (*PluginsCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}

	return &PluginsCommand{
		CommandDescription: glazed_cmds.NewCommandDescription(
			"plugins",
			glazed_cmds.WithShort("List the functions plans can call"),
			glazed_cmds.WithFlags(
				parameters.NewParameterDefinition(
					"plugin",
					parameters.ParameterTypeString,
					parameters.WithHelp("glob to match plugin names"),
				),
			),
			glazed_cmds.WithLayersList(
				glazedParameterLayer,
			),
		),
	}, nil
}

type PluginsSettings struct {
	Plugin string `glazed.parameter:"plugin"`
}

func (c *PluginsCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &PluginsSettings{}
	err := parsedLayers.InitializeStruct(layers.DefaultSlug, s)
	if err != nil {
		return err
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	svc, err := newPlannerService(ctx, os.Stdin, os.Stdout, cfg)
	if err != nil {
		return err
	}

	mds, err := filterFunctions(svc.Kernel().Plugins().FunctionsMetadata(), s.Plugin)
	if err != nil {
		return err
	}
	for _, md := range mds {
		if err := gp.AddRow(ctx, functionRow(md)); err != nil {
			return err
		}
	}
	return nil
}

func filterFunctions(mds []kernel.FunctionMetadata, pluginGlob string) ([]kernel.FunctionMetadata, error) {
	if pluginGlob == "" {
		return mds, nil
	}
	var ret []kernel.FunctionMetadata
	for _, md := range mds {
		matching, err := glob.Match(pluginGlob, md.PluginName)
		if err != nil {
			return nil, err
		}
		if matching {
			ret = append(ret, md)
		}
	}
	return ret, nil
}

func functionRow(md kernel.FunctionMetadata) types.Row {
	return types.NewRow(
		types.MRP("plugin", md.PluginName),
		types.MRP("name", md.Name),
		types.MRP("description", md.Description),
		types.MRP("parameters", formatParameters(md.Parameters)),
	)
}

// formatParameters renders parameters as "name" for required ones and
// "name=default" or "name?" for optional ones.
func formatParameters(params []kernel.ParameterMetadata) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		switch {
		case p.Required:
			parts = append(parts, p.Name)
		case p.Default != "":
			parts = append(parts, p.Name+"="+p.Default)
		default:
			parts = append(parts, p.Name+"?")
		}
	}
	return strings.Join(parts, ", ")
}
