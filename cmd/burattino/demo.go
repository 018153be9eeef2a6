package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/burattino/pkg/blocks"
	"github.com/go-go-golems/burattino/pkg/client"
	"github.com/go-go-golems/burattino/pkg/engine"
	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/messages"
	"github.com/go-go-golems/burattino/pkg/runtime"
	"github.com/go-go-golems/burattino/pkg/runtime/tools"
)

// demoScript is a canned model stream exercising text, a tool call and a
// spawned sub-agent, delivered in deliberately awkward chunk boundaries.
var demoScript = []string{
	"Let me look at the entry point first.\n",
	"<read_",
	"files>\npaths: cmd/burattino/main.go\n</read_files>",
	"\nNow I'll hand the search to a sub-agent.\n",
	"<spawn_agents>\nagents:\n  - agent_type: code-searcher\n",
	"    prompt: find every caller of NewRouter\n</spawn_agents>",
	"\nAll done.",
}

type readFilesParams struct {
	Paths string `json:"paths" jsonschema:"description=Newline-separated file paths to read"`
}

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted stream through the full pipeline and print the block tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func runDemo(ctx context.Context) error {
	router, err := events.NewEventRouter()
	if err != nil {
		return errors.Wrap(err, "create event router")
	}
	defer func() { _ = router.Close() }()

	manager := events.NewPublisherManager()
	manager.SubscribePublisher("run-events", router.Publisher)

	treeRouter := client.NewRouter()
	router.AddEventHandler("block-tree", "run-events", func(ctx context.Context, ev events.Event) error {
		treeRouter.Handle(ev)
		return nil
	})

	registry := tools.NewRegistry()
	if err := registry.Register(&tools.Definition{
		Name:        tools.ToolReadFiles,
		Description: "Read file contents",
		Parameters:  tools.ReflectParameters(&readFilesParams{}),
		Handler: func(ctx context.Context, input map[string]string) (any, error) {
			return "package main\n\nfunc main() { ... }", nil
		},
	}); err != nil {
		return err
	}

	runner := runtime.SubagentRunnerFunc(func(ctx context.Context, req runtime.SpawnRequest, agentID string) (string, error) {
		events.PublishEventToContext(ctx, events.NewTextEvent(events.EventMetadata{}, "searching the tree...\n", agentID))
		return "NewRouter is called from cmd/burattino/demo.go and pkg/client/router_test.go", nil
	})

	run := runtime.NewRun(runtime.RunConfig{
		Registry: registry,
		Runner:   runner,
		Sinks:    []events.EventSink{manager},
		Prior:    []messages.Message{messages.NewUserMessage("who calls NewRouter?")},
	})

	eg := errgroup.Group{}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})

	var result *runtime.RunResult
	eg.Go(func() error {
		defer cancel()
		<-router.Running()

		var err error
		result, err = run.Execute(ctx, engine.ScriptedTextStream(demoScript...))
		if err != nil {
			return errors.Wrap(err, "run failed")
		}
		// publishing blocks until the subscriber acks, so by the time Execute
		// returns the block tree has seen every event
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if result == nil {
		return errors.New("run produced no result")
	}

	fmt.Println("=== Block tree ===")
	fmt.Print(blocks.Outline(treeRouter.Tree()))

	fmt.Println("\n=== History ===")
	for _, m := range result.History {
		line := m.Content
		if m.Result != nil {
			line = "result for " + m.Result.ID
		}
		fmt.Printf("%-9s %s\n", m.Role, strings.ReplaceAll(line, "\n", " "))
	}

	log.Info().Int("blocks", treeRouter.Tree().Len()).Int("history", len(result.History)).Msg("demo complete")
	return nil
}
