// Command threadrun is a thin CLI over the Go SDK: submit tasks, inspect
// environments and threads, browse local run history, and serve the local
// simulator for development.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun"
	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/devserver"
	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/history"
)

type cliConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

// loadCLIConfig reads ~/.threadrun/config.yaml; a missing file is fine,
// environment variables and flags still apply through the SDK's own
// precedence rules.
func loadCLIConfig() cliConfig {
	var cfg cliConfig
	data, err := os.ReadFile(constants.GetConfigFilePath())
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

func newClient(baseURL, apiKey string) (*threadrun.Client, error) {
	fileCfg := loadCLIConfig()
	if apiKey == "" {
		apiKey = fileCfg.APIKey
	}
	if baseURL == "" {
		baseURL = fileCfg.BaseURL
	}
	return threadrun.NewClient(threadrun.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
}

func main() {
	var baseURL, apiKey string
	var timeoutSecs int
	var threadID string

	root := &cobra.Command{
		Use:           "threadrun",
		Short:         "Run tasks on the threadrun agent-execution service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "service base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (overrides env and config file)")

	runCmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Submit a task and stream its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(baseURL, apiKey)
			if err != nil {
				return err
			}

			startedAt := time.Now().UTC()
			out, err := client.Run(cmd.Context(), args[0], &threadrun.RunOptions{
				ThreadID: threadID,
				Timeout:  time.Duration(timeoutSecs) * time.Second,
				OnEvent: func(event threadrun.StreamEvent) error {
					if event.Type == threadrun.EventItemCompleted && event.Item != nil && event.Item.Text != "" {
						fmt.Println(event.Item.Text)
					}
					return nil
				},
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nthread: %s\n", out.ThreadID)
			if out.Run != nil && out.Run.Usage != nil {
				fmt.Printf("tokens: %d in / %d out\n", out.Run.Usage.Input, out.Run.Usage.Output)
			}

			recordRun(args[0], out, startedAt)
			return nil
		},
	}
	runCmd.Flags().StringVar(&threadID, "thread", "", "continue an existing thread")
	runCmd.Flags().IntVar(&timeoutSecs, "timeout", constants.DefaultRunTimeoutSeconds, "run timeout in seconds")

	envsCmd := &cobra.Command{
		Use:   "envs",
		Short: "List environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(baseURL, apiKey)
			if err != nil {
				return err
			}
			envs, err := client.Environments.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, env := range envs {
				marker := " "
				if env.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  %s\n", marker, env.ID, env.Name, env.Status)
			}
			return nil
		},
	}

	threadsCmd := &cobra.Command{
		Use:   "threads",
		Short: "List threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(baseURL, apiKey)
			if err != nil {
				return err
			}
			threads, err := client.Threads.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, th := range threads {
				fmt.Printf("%s  env=%s  %s\n", th.ID, th.EnvironmentID, th.Status)
			}
			return nil
		},
	}

	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show local run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := history.NewService("")
			if err != nil {
				return err
			}
			defer svc.Close()

			runs, err := svc.List(historyLimit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Printf("%s  thread=%s  %s  %d/%d tokens  %q\n",
					run.StartedAt.Format(time.RFC3339), run.ThreadID, run.Status,
					run.InputTokens, run.OutputTokens, run.Task)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")

	var serveAddr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local development simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			server := devserver.New(devserver.WithLogger(logger))
			logger.Info("simulator listening", "addr", serveAddr)
			return http.ListenAndServe(serveAddr, server.Handler())
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8450", "listen address")

	root.AddCommand(runCmd, envsCmd, threadsCmd, historyCmd, serveCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// recordRun appends to local history; failures are not fatal to the run.
func recordRun(task string, out *threadrun.RunOutput, startedAt time.Time) {
	svc, err := history.NewService("")
	if err != nil {
		return
	}
	defer svc.Close()

	completedAt := time.Now().UTC()
	run := history.Run{
		ThreadID:    out.ThreadID,
		Task:        task,
		Status:      "completed",
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
	}
	if out.Run != nil {
		run.RunID = out.Run.ID
		if out.Run.Status != "" {
			run.Status = out.Run.Status
		}
		if out.Run.Usage != nil {
			run.InputTokens = out.Run.Usage.Input
			run.OutputTokens = out.Run.Usage.Output
		}
	}
	_, _ = svc.Record(run)
}
