package operator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voocel/agentcore"
	"github.com/voocel/agentcore/hook"
	"github.com/voocel/agentcore/schema"
	"github.com/voocel/agentcore/state"
	"github.com/voocel/litellm"
)

const defaultReActMaxTurns = 10

// ReAct is the reference Operator: reason, act, observe, repeat until the
// model produces a terminal response or a bound trips. It adapts
// agentcore.AgentLoop — which already runs the inference/tool-dispatch
// engine — to the Operator boundary: resolving per-call overrides, reading
// and declaring state through effects instead of writing directly, and
// dispatching hooks around the loop's turn boundaries.
//
// Grounded on _examples/original_source/layer0/src/operator.rs's state
// machine (ResolveContext → BuildRequest → Inference → ClassifyResponse →
// Dispatch → Observe → LoopGuard → Finalize); the inner four stages are
// agentcore.AgentLoop's own responsibility, so this type implements the
// outer four plus the hook/effect seams the Rust source delegates to a
// caller.
type ReAct struct {
	Model        agentcore.ChatModel
	Tools        []agentcore.Tool
	SystemPrompt string

	// Store, if set, is read during ResolveContext for prior session
	// history. The ReAct operator never writes to it directly — it
	// declares a WriteMemory effect in Finalize instead.
	Store state.StateReader
	Hooks *hook.Registry

	MaxTurns int
}

type ReActOption func(*ReAct)

func WithStore(s state.StateReader) ReActOption { return func(r *ReAct) { r.Store = s } }
func WithHooks(h *hook.Registry) ReActOption    { return func(r *ReAct) { r.Hooks = h } }
func WithReActMaxTurns(n int) ReActOption       { return func(r *ReAct) { r.MaxTurns = n } }

func NewReAct(model agentcore.ChatModel, tools []agentcore.Tool, systemPrompt string, opts ...ReActOption) *ReAct {
	r := &ReAct{
		Model:        model,
		Tools:        tools,
		SystemPrompt: systemPrompt,
		MaxTurns:     defaultReActMaxTurns,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// historyKey is the state key under which a session's prior conversation
// is stored, as a JSON array of agentcore.Message.
const historyKey = "history"

type resolvedConfig struct {
	MaxTurns       int
	MaxCost        float64 // not enforced: no ChatModel in this tree reports per-call cost
	MaxDuration    time.Duration
	AllowedTools   []string
	SystemAddendum string
}

// resolveConfig merges a per-call OperatorConfig over ReAct's static
// defaults. Model is deliberately not among the merged fields: this
// ReAct is bound to a single agentcore.ChatModel at construction, and a
// per-call provider swap would need a model registry this package
// doesn't own.
func (r *ReAct) resolveConfig(override *OperatorConfig) resolvedConfig {
	cfg := resolvedConfig{MaxTurns: r.MaxTurns}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultReActMaxTurns
	}
	if override == nil {
		return cfg
	}
	if override.MaxTurns > 0 {
		cfg.MaxTurns = override.MaxTurns
	}
	cfg.MaxCost = override.MaxCost
	cfg.MaxDuration = override.MaxDuration
	cfg.AllowedTools = override.AllowedTools
	cfg.SystemAddendum = override.SystemAddendum
	return cfg
}

// resolveContext reads per-call overrides, loads prior session history
// through the StateReader, and assembles the system prompt.
func (r *ReAct) resolveContext(ctx context.Context, input OperatorInput, cfg resolvedConfig) (string, []agentcore.AgentMessage, error) {
	systemPrompt := r.SystemPrompt
	if cfg.SystemAddendum != "" {
		systemPrompt = systemPrompt + "\n" + cfg.SystemAddendum
	}

	if input.Session == "" || r.Store == nil {
		return systemPrompt, nil, nil
	}

	raw, found, err := r.Store.Read(ctx, state.Session(input.Session), historyKey)
	if err != nil {
		return "", nil, fmt.Errorf("resolve context: %w", err)
	}
	if !found {
		return systemPrompt, nil, nil
	}

	var msgs []agentcore.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return "", nil, fmt.Errorf("resolve context: decode history: %w", err)
	}
	return systemPrompt, agentcore.ToAgentMessages(msgs), nil
}

// filterTools keeps only tools named in allowed, preserving Tools' order.
// A nil or empty allowed list means every tool is permitted.
func filterTools(tools []agentcore.Tool, allowed []string) []agentcore.Tool {
	if len(allowed) == 0 {
		return tools
	}
	want := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		want[name] = true
	}
	out := make([]agentcore.Tool, 0, len(tools))
	for _, t := range tools {
		if want[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}

// guardState is shared between the CheckPermission callback (running in
// the loop's goroutine) and Execute's event-consuming loop, letting a
// PreToolUse Halt recorded mid-turn trip LoopGuard once the turn ends.
type guardState struct {
	mu          sync.Mutex
	haltReason  string
	haltPending bool
}

func (g *guardState) recordHalt(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.haltPending = true
	g.haltReason = reason
}

func (g *guardState) take() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	reason, pending := g.haltReason, g.haltPending
	g.haltPending = false
	return reason, pending
}

// checkPermission adapts PreToolUse hook dispatch to agentcore's
// PermissionFunc seam. ModifyToolInput is not representable through this
// seam (PermissionFunc can only allow or deny, not rewrite the call) and
// is treated as Continue; SkipTool and Halt both deny the call, since
// loop.go has no path for a permission check to stop the loop outright —
// a Halt instead denies this one tool and records the reason so LoopGuard
// can end the run with ObserverHalt once the current turn finishes.
func (r *ReAct) checkPermission(g *guardState) agentcore.PermissionFunc {
	if r.Hooks == nil {
		return nil
	}
	return func(ctx context.Context, call agentcore.ToolCall) error {
		action := r.Hooks.Dispatch(ctx, &hook.Context{
			Point:     hook.PreToolUse,
			ToolName:  call.Name,
			ToolInput: call.Args,
		})
		switch action.Kind {
		case hook.SkipTool:
			return fmt.Errorf("skipped by hook: %s", action.Reason)
		case hook.Halt:
			g.recordHalt(action.Reason)
			return fmt.Errorf("halted by hook: %s", action.Reason)
		default:
			return nil
		}
	}
}

// Execute implements Operator.
func (r *ReAct) Execute(ctx context.Context, input OperatorInput) (OperatorOutput, *OperatorError) {
	start := time.Now()
	cfg := r.resolveConfig(input.Config)

	systemPrompt, history, err := r.resolveContext(ctx, input, cfg)
	if err != nil {
		return OperatorOutput{}, NewOperatorError(OperatorErrorOther, err)
	}

	if r.Hooks != nil {
		action := r.Hooks.Dispatch(ctx, &hook.Context{Point: hook.PreInference, ModelInput: input.Message})
		if action.Kind == hook.Halt {
			return OperatorOutput{
				ExitReason: ObserverHalt(action.Reason),
				Metadata:   OperatorMetadata{Duration: time.Since(start)},
			}, nil
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.MaxDuration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.MaxDuration)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	guard := &guardState{}
	agentCtx := agentcore.AgentContext{
		SystemPrompt: systemPrompt,
		Messages:     history,
		Tools:        filterTools(r.Tools, cfg.AllowedTools),
	}
	loopCfg := agentcore.LoopConfig{
		Model:           r.Model,
		MaxTurns:        cfg.MaxTurns,
		CheckPermission: r.checkPermission(guard),
	}

	events := agentcore.AgentLoop(runCtx, []agentcore.AgentMessage{agentcore.UserMsg(input.Message)}, agentCtx, loopCfg)
	output, newMessages, opErr := r.observe(runCtx, events, cancel, guard, start, cfg)
	if opErr != nil {
		return OperatorOutput{}, opErr
	}

	if input.Session != "" && r.Store != nil && len(newMessages) > 0 {
		combined := append(agentcore.CollectMessages(history), agentcore.CollectMessages(newMessages)...)
		if encoded, err := json.Marshal(combined); err == nil {
			output.Effects = append(output.Effects, WriteMemory(state.Session(input.Session), historyKey, encoded))
		}
	}

	return output, nil
}

// observe drains the loop's event channel, accumulating usage, tool call
// records, and turn count, applying LoopGuard checks (ExitCheck hook,
// pending PreToolUse halt) after each completed turn by
// cancelling runCtx — agentcore's loop checks ctx.Err() at every turn
// boundary, so cancellation is how this adapter enforces bounds the inner
// loop doesn't natively know about. MaxCost is not checked: no cost is
// accumulated, so no invocation exits with ExitBudgetExhausted.
func (r *ReAct) observe(ctx context.Context, events <-chan agentcore.Event, cancel context.CancelFunc, guard *guardState, start time.Time, cfg resolvedConfig) (OperatorOutput, []agentcore.AgentMessage, *OperatorError) {
	var (
		finalText   string
		turnsUsed   int
		toolsCalled []ToolCallRecord
		toolStarts  = make(map[string]time.Time)
		usage       agentcore.Usage
		loopErr     error
		newMessages []agentcore.AgentMessage
		override    *ExitReason
	)

	for ev := range events {
		switch ev.Type {
		case agentcore.EventToolExecStart:
			toolStarts[ev.ToolID] = time.Now()

		case agentcore.EventToolExecEnd:
			dur := time.Since(toolStarts[ev.ToolID])
			toolsCalled = append(toolsCalled, ToolCallRecord{Name: ev.Tool, Duration: dur, Success: !ev.IsError})
			if r.Hooks != nil {
				r.Hooks.Dispatch(ctx, &hook.Context{
					Point:      hook.PostToolUse,
					ToolName:   ev.Tool,
					ToolOutput: ev.Result,
				})
			}

		case agentcore.EventTurnEnd:
			turnsUsed++
			if msg, ok := ev.Message.(agentcore.Message); ok {
				usage.Add(msg.Usage)
				finalText = msg.TextContent()
				if r.Hooks != nil {
					r.Hooks.Dispatch(ctx, &hook.Context{Point: hook.PostInference, ModelOutput: msg})
				}
			}

			if reason, halted := guard.take(); halted {
				override = &ExitReason{Kind: ExitObserverHalt, Reason: reason}
				cancel()
				continue
			}
			if r.Hooks != nil {
				action := r.Hooks.Dispatch(ctx, &hook.Context{
					Point:          hook.ExitCheck,
					TokensUsed:     usage.TotalTokens,
					TurnsCompleted: turnsUsed,
					Elapsed:        time.Since(start),
				})
				if action.Kind == hook.Halt {
					override = &ExitReason{Kind: ExitObserverHalt, Reason: action.Reason}
					cancel()
					continue
				}
			}
		case agentcore.EventMessageEnd:
			newMessages = append(newMessages, ev.Message)

		case agentcore.EventError:
			loopErr = ev.Err

		case agentcore.EventAgentEnd:
			if ev.Err != nil {
				loopErr = ev.Err
			}
		}
	}

	meta := OperatorMetadata{
		TokensIn:    usage.Input,
		TokensOut:   usage.Output,
		TurnsUsed:   turnsUsed,
		ToolsCalled: toolsCalled,
		Duration:    time.Since(start),
	}

	if override != nil {
		return OperatorOutput{Message: finalText, ExitReason: *override, Metadata: meta}, newMessages, nil
	}

	if loopErr == nil {
		return OperatorOutput{Message: finalText, ExitReason: ExitReason{Kind: ExitComplete}, Metadata: meta}, newMessages, nil
	}

	switch {
	case errors.Is(loopErr, agentcore.ErrMaxTurns):
		return OperatorOutput{Message: finalText, ExitReason: ExitReason{Kind: ExitMaxTurns}, Metadata: meta}, newMessages, nil
	case errors.Is(loopErr, context.DeadlineExceeded):
		return OperatorOutput{Message: finalText, ExitReason: ExitReason{Kind: ExitTimeout}, Metadata: meta}, newMessages, nil
	case errors.Is(loopErr, context.Canceled):
		return OperatorOutput{}, nil, NewOperatorError(OperatorErrorCancelled, loopErr)
	case errors.Is(loopErr, schema.ErrToolNotFound):
		return OperatorOutput{}, nil, NewOperatorError(OperatorErrorOther, loopErr)
	case litellm.IsRetryableError(loopErr):
		return OperatorOutput{}, nil, NewOperatorError(OperatorErrorRetryable, loopErr)
	default:
		return OperatorOutput{}, nil, NewOperatorError(OperatorErrorModel, loopErr)
	}
}
