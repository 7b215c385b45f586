// Command scenariorun executes a scenario definition file and prints the step
// results as JSON.
//
//	scenariorun -scenario incident.yaml -var incident="db down" -provider openai
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/scenariomesh"
	"github.com/hupe1980/scenariomesh/config"
	"github.com/hupe1980/scenariomesh/connector/slack"
	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/invoker"
	"github.com/hupe1980/scenariomesh/invoker/anthropic"
	"github.com/hupe1980/scenariomesh/invoker/openai"
	"github.com/hupe1980/scenariomesh/logging"
	"github.com/hupe1980/scenariomesh/observer"
	"github.com/hupe1980/scenariomesh/scenario"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// output is the JSON document written to stdout.
type output struct {
	ScenarioID string                 `json:"scenario_id"`
	Results    []core.ExecutionResult `json:"results"`
	State      core.State             `json:"state"`
	Error      string                 `json:"error,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scenariorun", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "path to YAML settings file")
	scenarioFile := fs.String("scenario", "", "path to YAML/JSON scenario definition (required)")
	provider := fs.String("provider", "", "agent provider override: echo, openai or anthropic")
	console := fs.Bool("console", true, "print one line per step to stderr")
	vars := keyValueFlag{}
	fs.Var(&vars, "var", "initial state value (key=value, repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*scenarioFile) == "" {
		fmt.Fprintln(stderr, "-scenario is required")
		return 2
	}

	settings, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "load settings: %v\n", err)
		return 1
	}
	if *provider != "" {
		settings.Provider = strings.ToLower(*provider)
		if err := settings.Validate(); err != nil {
			fmt.Fprintf(stderr, "invalid settings: %v\n", err)
			return 1
		}
	}

	logger := logging.NewLogger(settings.LoggerConfig(stderr))

	def, err := scenario.Load(*scenarioFile)
	if err != nil {
		fmt.Fprintf(stderr, "load scenario: %v\n", err)
		return 1
	}

	inv, err := buildInvoker(settings, logger)
	if err != nil {
		fmt.Fprintf(stderr, "build invoker: %v\n", err)
		return 1
	}

	observers := []core.Observer{observer.NewLogging(logger)}
	if *console {
		observers = append(observers, observer.NewConsole(stderr))
	}
	if settings.Slack.NotifySteps {
		observers = append(observers, slack.NewObserver(newSlackConnector(settings, logger), settings.Slack.Channel))
	}

	mesh := scenariomesh.New(func(o *scenariomesh.Options) {
		o.EngineConfig = settings.EngineConfig()
		o.Invoker = inv
		o.Observers = observers
		o.Logger = logger
	})

	state := core.State{}
	for k, v := range vars {
		state[k] = v
	}

	results, runErr := mesh.RunScenario(ctx, def, state)

	out := output{ScenarioID: def.ID, Results: results, State: state}
	if out.Results == nil {
		out.Results = []core.ExecutionResult{}
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode results: %v\n", err)
		return 1
	}

	if runErr != nil {
		var stepErr *core.StepError
		if errors.As(runErr, &stepErr) {
			logger.Error("scenario failed", "step_id", stepErr.StepID, "error", stepErr.Err)
		}
		return 1
	}
	return 0
}

// buildInvoker selects the model provider and routes the Slack agent, if
// configured, to the Slack connector.
func buildInvoker(s config.Settings, logger logging.Logger) (core.AgentInvoker, error) {
	var base core.AgentInvoker

	switch s.Provider {
	case config.ProviderEcho:
		base = invoker.Echo()
	case config.ProviderOpenAI:
		var clientOpts []option.RequestOption
		if s.OpenAIAPIKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(s.OpenAIAPIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		base = openai.NewInvokerFromClient(&client, func(o *openai.Options) {
			if s.Model != "" {
				o.Model = s.Model
			}
			o.Instructions = s.Instructions
			o.Logger = logger
		})
	case config.ProviderAnthropic:
		base = anthropic.NewInvoker(func(o *anthropic.Options) {
			if s.Model != "" {
				o.Model = anthropicsdk.Model(s.Model)
			}
			o.APIKey = s.AnthropicAPIKey
			o.Instructions = s.Instructions
			o.Logger = logger
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}

	if s.Slack.Agent == "" {
		return base, nil
	}

	router := invoker.NewRouter(base)
	router.Register(s.Slack.Agent, slack.NewInvoker(newSlackConnector(s, logger), s.Slack.Channel))
	return router, nil
}

func newSlackConnector(s config.Settings, logger logging.Logger) *slack.Connector {
	return slack.New(s.Slack.BotToken, func(o *slack.Options) {
		o.BaseURL = s.Slack.BaseURL
		o.Logger = logger
	})
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(*kv))
	for key, value := range *kv {
		pairs = append(pairs, key+"="+value)
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("state key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = val
	return nil
}
