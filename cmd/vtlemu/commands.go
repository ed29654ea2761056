package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prognoshealth/vtlemu/config"
	"github.com/prognoshealth/vtlemu/gwevent"
	"github.com/prognoshealth/vtlemu/mapping"
	"github.com/prognoshealth/vtlemu/renderapi"
	"github.com/prognoshealth/vtlemu/server"
)

const version = "0.1.0"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vtlemu",
		Short:         "API Gateway VTL mapping template emulator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRenderCommand(), newServeCommand())
	return root
}

type renderFlags struct {
	template    string
	event       string
	eventFormat string
	strict    bool
	minify    bool
	jsonMiss  string
	overrides bool
}

func newRenderCommand() *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template against an event file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template file, - for stdin")
	cmd.Flags().StringVarP(&f.event, "event", "e", "", "event file (json or yaml)")
	cmd.Flags().StringVar(&f.eventFormat, "event-format", formatGateway, "event file shape: gateway, proxy (rest api lambda event) or v2 (http api lambda event)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on template errors instead of printing them")
	cmd.Flags().BoolVar(&f.minify, "minify", false, "compact json output")
	cmd.Flags().StringVar(&f.jsonMiss, "json-miss", "", "value of $input.json for a missing path: empty or null")
	cmd.Flags().BoolVar(&f.overrides, "overrides", false, "print the result with its overrides as json")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func runRender(out io.Writer, f *renderFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	template, err := readTemplate(f.template)
	if err != nil {
		return err
	}

	event, err := loadEvent(f.event, f.eventFormat)
	if err != nil {
		return err
	}

	opts := cfg.RenderOptions()
	opts.ThrowOnError = opts.ThrowOnError || f.strict
	opts.MinifyJSON = opts.MinifyJSON || f.minify
	if f.jsonMiss != "" {
		if opts.JSONMiss, err = mapping.ParseJSONMiss(f.jsonMiss); err != nil {
			return err
		}
	}

	engineOpts, cache, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	renderer := mapping.NewRenderer(mapping.WithEngineOptions(engineOpts...), mapping.WithLogger(cfg.Logger()))

	res, err := renderer.RenderDetailed(template, event, opts)
	if err != nil {
		return err
	}

	if f.overrides {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(renderapi.Response{Result: res.Output, Overrides: res.Overrides})
	}

	_, err = fmt.Fprintln(out, res.Output)
	return err
}

func readTemplate(path string) (string, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed reading template '%s'", path)
	}

	return string(data), nil
}

// Event file shapes accepted by render.
const (
	formatGateway = "gateway"
	formatProxy   = "proxy"
	formatV2      = "v2"
)

// loadEvent reads an event file. YAML files are converted to JSON first so
// both formats decode through the same request shape. Lambda proxy events
// are converted into the simulated request.
func loadEvent(path, format string) (gwevent.Request, error) {
	if path == "" {
		return gwevent.Request{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gwevent.Request{}, errors.Wrapf(err, "failed reading event '%s'", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return gwevent.Request{}, errors.Wrapf(err, "failed decoding event '%s'", path)
		}
		if data, err = json.Marshal(doc); err != nil {
			return gwevent.Request{}, errors.Wrapf(err, "failed converting event '%s'", path)
		}
	}

	var event gwevent.Request

	switch format {
	case formatGateway, "":
		event, err = gwevent.Parse(data)
	case formatProxy:
		var proxy events.APIGatewayProxyRequest
		if err = json.Unmarshal(data, &proxy); err == nil {
			event = gwevent.FromProxyRequest(proxy)
		}
	case formatV2:
		var v2 events.APIGatewayV2HTTPRequest
		if err = json.Unmarshal(data, &v2); err == nil {
			event = gwevent.FromV2HTTPRequest(v2)
		}
	default:
		return gwevent.Request{}, errors.Errorf("unknown event format '%s'", format)
	}

	if err != nil {
		return gwevent.Request{}, errors.Wrapf(err, "failed decoding event '%s'", path)
	}
	return event, nil
}

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local render server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			engineOpts, cache, err := cfg.EngineOptions()
			if err != nil {
				return err
			}
			if cache != nil {
				defer cache.Close()
			}

			logger := cfg.Logger()
			renderer := mapping.NewRenderer(mapping.WithEngineOptions(engineOpts...), mapping.WithLogger(logger))
			svc := renderapi.NewService(renderer, cfg.RenderOptions(), logger)

			srv := server.New(svc, server.Options{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				Burst:             cfg.RateLimit.Burst,
				Logger:            logger,
				Registry:          prometheus.NewRegistry(),
			})

			return srv.Run(":" + cfg.Port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides PORT")
	return cmd
}
