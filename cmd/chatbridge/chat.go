package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/engine"
	"github.com/rhuss/chatbridge/pkg/stream"
)

type chatOptions struct {
	model     string
	system    string
	effort    string
	reasoning bool
	noStream  bool
}

func newChatCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat PROMPT...",
		Short: "Send one prompt and stream the reply to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			prov, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			defer prov.Close()
			eng, err := buildEngine(cfg, prov, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, eng, opts, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "model (default: provider.default_model)")
	f.StringVarP(&opts.system, "system", "s", "", "system prompt")
	f.StringVar(&opts.effort, "effort", "", "reasoning effort: low, medium or high")
	f.BoolVar(&opts.reasoning, "reasoning", false, "print the model's reasoning after the reply")
	f.BoolVar(&opts.noStream, "no-stream", false, "wait for the complete reply")
	return cmd
}

func runChat(ctx context.Context, eng *engine.Engine, opts chatOptions, prompt string, out, errOut io.Writer) error {
	req := &api.ChatRequest{
		Model:           opts.model,
		ReasoningEffort: opts.effort,
		ReturnReasoning: opts.reasoning,
	}
	if opts.system != "" {
		req.Messages = append(req.Messages, api.Message{Role: api.RoleSystem, Content: opts.system})
	}
	req.Messages = append(req.Messages, api.Message{Role: api.RoleUser, Content: prompt})

	var (
		resp *api.ChatResponse
		err  error
	)
	if opts.noStream {
		resp, err = eng.Chat(ctx, req)
		if err == nil {
			fmt.Fprint(out, resp.TextOrEmpty())
		}
	} else {
		collector := stream.NewCollector()
		h := stream.HandlerFuncs{
			Partial:  func(text string) { fmt.Fprint(out, text) },
			Complete: collector.OnCompleteResponse,
			Error:    collector.OnError,
		}
		if _, err := eng.StreamChat(ctx, req, h); err != nil {
			return err
		}
		resp, err = collector.Wait(ctx)
	}
	fmt.Fprintln(out)
	if err != nil {
		return err
	}

	printSummary(errOut, resp)
	return nil
}

// printSummary writes reasoning, tool calls and usage after the reply.
func printSummary(w io.Writer, resp *api.ChatResponse) {
	if resp.Reasoning != nil {
		fmt.Fprintf(w, "\n--- reasoning ---\n%s\n", *resp.Reasoning)
	}
	for _, tc := range resp.ToolCalls {
		fmt.Fprintf(w, "tool call %s: %s(%s)\n", tc.ID, tc.Name, tc.Arguments)
	}
	fmt.Fprintf(w, "[%s", resp.FinishReason)
	if u := resp.Usage; u != nil {
		fmt.Fprintf(w, ", %d in / %d out tokens", u.InputTokens, u.OutputTokens)
	}
	fmt.Fprintln(w, "]")
}
