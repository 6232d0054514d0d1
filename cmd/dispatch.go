// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"adw/cli/internal/dispatch"
	apperrors "adw/cli/internal/errors"
	"adw/cli/internal/interactionlog"
	"adw/cli/internal/keychain"
	"adw/cli/internal/logging"
	"adw/cli/internal/model"
	"adw/cli/internal/parser"
	"adw/cli/internal/router"
	"adw/cli/internal/session"
	"adw/cli/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	dispatchTask          string
	dispatchModel         string
	dispatchTimeout       time.Duration
	dispatchADWID         string
	dispatchAgent         string
	dispatchFallbackFiles int
	dispatchShortStat     string
	dispatchJSON          bool
)

// errReported marks a failure that has already been shown to the user.
var errReported = errors.New("dispatch failed")

// dispatchCmd sends one prompt to the agent server and prints the reply.
var dispatchCmd = &cobra.Command{
	Use:   "dispatch [prompt|-]",
	Short: "Send a prompt to the agent server",
	Long: `The dispatch command routes a prompt to a model by task type, sends it to the
agent server inside a fresh session and prints the reply together with the
tool activity and estimated change metrics.

Transient failures (connection, timeout, 5xx) are retried with exponential
backoff. Every dispatch is recorded in the interaction log under
$XDG_STATE_HOME/adw/agents (or log_dir), and in Postgres when audit.dsn is set.

Pass "-" or omit the prompt to read it from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := readPrompt(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		taskType, err := model.ParseTaskType(dispatchTask)
		if err != nil {
			return err
		}
		prompt, err := model.NewPrompt(text, taskType, dispatchModel)
		if err != nil {
			return err
		}

		rt, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		r, err := router.New(rt.cfg.Models.HeavyLifting, rt.cfg.Models.Lightweight)
		if err != nil {
			return err
		}
		modelID, err := r.Resolve(prompt)
		if err != nil {
			return err
		}

		recorder, closeRecorder := openRecorder(ctx, rt)
		defer closeRecorder()

		view := newProgressView(!dispatchJSON && stdoutIsTerminal())
		d := dispatch.New(r, rt.api, dispatch.ConfigFrom(rt.cfg),
			dispatch.WithRecorder(recorder),
			dispatch.WithLogger(rt.log),
			dispatch.WithObserver(view),
		)
		mgr := session.NewManager(rt.api, rt.cfg.ServerURL,
			session.WithReuse(rt.cfg.ReuseSessions),
			session.WithDeleteOnClose(rt.cfg.DeleteSessions),
			session.WithLogger(rt.log),
		)
		defer mgr.Shutdown(ctx)

		opts := []dispatch.SendOption{dispatch.WithLogContext(interactionlog.Context{
			ADWID:     dispatchADWID,
			AgentName: dispatchAgent,
		})}
		if dispatchTimeout > 0 {
			opts = append(opts, dispatch.WithTimeout(dispatchTimeout))
		}

		view.Start(fmt.Sprintf("Waiting for %s", modelID))
		resp, err := d.Do(ctx, mgr, prompt, opts...)
		view.Stop()
		if err != nil {
			if dispatchJSON {
				_ = writeJSON(cmd.OutOrStdout(), dispatchFailure(err))
			} else {
				logging.PresentDispatchError(err)
			}
			return errReported
		}

		metrics := parser.EstimateMetrics(resp.Parts, dispatchFallbackFiles)
		if dispatchShortStat != "" {
			if st, ok := parser.ParseShortStat(dispatchShortStat); ok {
				metrics = parser.Reconcile(metrics, &st)
			} else {
				rt.log.Warn("ignoring unparseable --shortstat", rt.log.Args("value", dispatchShortStat))
			}
		}
		out := dispatchResult{
			SessionID: resp.Message.SessionID,
			MessageID: resp.Message.ID,
			Model:     modelID,
			TaskType:  taskType,
			Text:      parser.ExtractText(resp.Parts),
			Code:      parser.ExtractCode(resp.Parts),
			Tools:     parser.ExtractToolActivity(resp.Parts),
			Metrics:   metrics,
		}
		if dispatchJSON {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		renderDispatchResult(cmd.OutOrStdout(), out, view.Retries())
		return nil
	},
}

// dispatchResult is the printed outcome of a successful dispatch.
type dispatchResult struct {
	SessionID string              `json:"session_id,omitempty"`
	MessageID string              `json:"message_id,omitempty"`
	Model     string              `json:"model"`
	TaskType  model.TaskType      `json:"task_type"`
	Text      string              `json:"text"`
	Code      []model.Part        `json:"code,omitempty"`
	Tools     parser.ToolActivity `json:"tools"`
	Metrics   model.Metrics       `json:"metrics"`
}

// dispatchError is the JSON shape of a terminal failure.
type dispatchError struct {
	Error struct {
		Kind       apperrors.Kind `json:"kind"`
		Message    string         `json:"message"`
		StatusCode int            `json:"status_code,omitempty"`
		Attempts   int            `json:"attempts,omitempty"`
		ElapsedMS  int64          `json:"elapsed_ms,omitempty"`
	} `json:"error"`
}

func dispatchFailure(err error) dispatchError {
	var out dispatchError
	out.Error.Kind = apperrors.KindOf(err)
	out.Error.Message = logging.Mask(err.Error())
	var e *apperrors.E
	if errors.As(err, &e) {
		out.Error.StatusCode = e.StatusCode
		out.Error.Attempts = e.Attempts
		out.Error.ElapsedMS = e.Elapsed.Milliseconds()
	}
	return out
}

// readPrompt takes the prompt from args, or from r when it is "-" or absent.
func readPrompt(r io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	return string(b), nil
}

// openRecorder builds the interaction logger: always a file sink, plus a
// Postgres sink when an audit DSN is configured or stored in the keychain.
// An unreachable audit database is warned about and skipped.
func openRecorder(ctx context.Context, rt *cliEnv) (*interactionlog.Logger, func()) {
	dir := rt.cfg.LogDir
	if dir == "" {
		var err error
		if dir, err = xdg.AgentsDir(); err != nil {
			rt.log.Warn("no interaction log directory", rt.log.Args("error", err.Error()))
			return interactionlog.New(rt.log), func() {}
		}
	}
	sinks := []interactionlog.Sink{interactionlog.NewFileSink(dir)}
	cleanup := func() {}

	dsn := rt.cfg.Audit.DSN
	if dsn == "" {
		if km, err := keychain.GetManager(); err == nil {
			if v, err := km.LoadAuditDSN(); err == nil {
				dsn = v
			}
		}
	}
	if dsn != "" {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pg, err := interactionlog.OpenPostgresSink(openCtx, dsn)
		if err != nil {
			rt.log.Warn("audit sink unavailable", rt.log.Args("error", logging.Mask(err.Error())))
		} else {
			sinks = append(sinks, pg)
			cleanup = pg.Close
		}
	}
	return interactionlog.New(rt.log, sinks...), cleanup
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderDispatchResult prints the reply text followed by a short summary.
func renderDispatchResult(w io.Writer, out dispatchResult, retries []string) {
	for _, note := range retries {
		pterm.Warning.WithWriter(w).Println(note)
	}
	if out.Text != "" {
		fmt.Fprintln(w, out.Text)
		fmt.Fprintln(w)
	}

	m := out.Metrics
	tools := "-"
	if len(m.UniqueTools) > 0 {
		tools = strings.Join(m.UniqueTools, ", ")
	}
	data := pterm.TableData{
		{"Model", out.Model},
		{"Session", orDash(out.SessionID)},
		{"Files changed", strconv.Itoa(m.FilesChanged)},
		{"Lines", fmt.Sprintf("+%d / -%d", m.LinesAdded, m.LinesRemoved)},
		{"Tool calls", strconv.Itoa(m.ToolInvocationCount)},
		{"Tools", tools},
	}
	if pending := len(out.Tools.Pending()); pending > 0 {
		data = append(data, []string{"Unfinished tool calls", strconv.Itoa(pending)})
	}
	_ = pterm.DefaultTable.WithWriter(w).WithData(data).Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	dispatchCmd.Flags().StringVarP(&dispatchTask, "task", "t", "", "Task type: "+taskTypeList())
	dispatchCmd.Flags().StringVarP(&dispatchModel, "model", "m", "", "Model id overriding the routing table")
	dispatchCmd.Flags().DurationVar(&dispatchTimeout, "timeout", 0, "Per-attempt timeout (default from config by task tier)")
	dispatchCmd.Flags().StringVar(&dispatchADWID, "adw-id", "", "Workflow id used to group interaction logs")
	dispatchCmd.Flags().StringVar(&dispatchAgent, "agent", "", "Agent name used to group interaction logs")
	dispatchCmd.Flags().IntVar(&dispatchFallbackFiles, "fallback-files", 0, "Files-changed count to report when none can be detected")
	dispatchCmd.Flags().StringVar(&dispatchShortStat, "shortstat", "", "Authoritative git diff --shortstat output overriding estimated counts")
	dispatchCmd.Flags().BoolVar(&dispatchJSON, "json", false, "Print the result as JSON")
	_ = dispatchCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(dispatchCmd)
}

func taskTypeList() string {
	types := model.AllTaskTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
