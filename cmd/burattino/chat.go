package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/burattino/pkg/engine"
	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/messages"
	"github.com/go-go-golems/burattino/pkg/runtime"
	"github.com/go-go-golems/burattino/pkg/runtime/tools"
)

func newChatCommand() *cobra.Command {
	var model string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Run one live streamed turn against an OpenAI-compatible endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), model, baseURL, args[0])
		},
	}
	cmd.Flags().StringVar(&model, "model", openai.GPT4oMini, "Model to use")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override the API base URL")
	return cmd
}

func runChat(ctx context.Context, model, baseURL, prompt string) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)

	stream, err := engine.Open(ctx, client, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	printer := events.SinkFunc(func(ev events.Event) error {
		if te, ok := ev.(*events.EventText); ok && te.AgentID == "" {
			fmt.Print(te.Text)
		}
		return nil
	})

	run := runtime.NewRun(runtime.RunConfig{
		Registry: tools.NewRegistry(),
		Sinks:    []events.EventSink{printer},
		Prior:    []messages.Message{messages.NewUserMessage(prompt)},
	})

	result, err := run.Execute(ctx, stream)
	if err != nil {
		return err
	}
	fmt.Println()
	if result.Interrupted {
		fmt.Println(messages.InterruptedMarker)
	}
	return nil
}
