package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stonksai/voicetrader-go/pkg/voicetrader"
)

var (
	apiKey    string
	addr      string
	liveModel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "voicetrader",
		Short: "Voice Trader CLI",
		Long:  "A voice-driven mock trading assistant for the Indian stock market (NSE)",
	}

	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Backend API key (overrides GEMINI_API_KEY)")

	rootCmd.AddCommand(talkCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(newsCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(insightCmd())
	rootCmd.AddCommand(devicesCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		voicetrader.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

func loadConfig() *voicetrader.Config {
	cfg := voicetrader.NewConfig()
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if liveModel != "" {
		cfg.LiveModel = liveModel
	}
	return cfg
}

func talkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talk",
		Short: "Start a voice trading session",
		Long:  "Open a live voice session with the trading assistant; Ctrl-C ends it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			insight := voicetrader.NewInsightClient(cfg)
			controller := voicetrader.NewSessionController(cfg, insight, nil)

			controller.SetStateHandler(func(state voicetrader.SessionState) {
				fmt.Printf("[session] %s\n", state)
			})
			controller.SetTranscriptHandler(func(user, agent string) {
				if user != "" {
					fmt.Printf("[you]   %s\n", user)
				}
				if agent != "" {
					fmt.Printf("[agent] %s\n", agent)
				}
			})
			controller.SetTradeHandler(func(order voicetrader.TradeOrder) {
				fmt.Printf("[trade] %s %d %s @ ₹%s\n",
					order.Action, order.Quantity, order.Symbol, order.Price.StringFixed(2))
			})
			controller.SetErrorHandler(func(agentErr *voicetrader.AgentError) {
				fmt.Printf("[error] %s (%s)\n", agentErr.Message, agentErr.Code)
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Println("Starting voice session. Press Ctrl-C to stop.")
			return controller.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&liveModel, "model", "", "Live model name override")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long:  "Serve the REST API the trading dashboard consumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			insight := voicetrader.NewInsightClient(cfg)
			controller := voicetrader.NewSessionController(cfg, insight, nil)
			server := voicetrader.NewDashboardServer(cfg, insight, controller)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					voicetrader.GetGlobalLogger().WithError(err).Warn("Shutdown incomplete")
				}
			}()

			return server.Start(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the demo portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			insight := voicetrader.NewInsightClient(cfg)
			fmt.Println(insight.AnalyzePortfolio(cmd.Context(), voicetrader.MockPortfolio))
			return nil
		},
	}
}

func newsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "news [ticker]",
		Short: "Fetch grounded news for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			insight := voicetrader.NewInsightClient(cfg)
			summary := insight.News(cmd.Context(), args[0])

			fmt.Println(summary.Summary)
			if len(summary.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, source := range summary.Sources {
					fmt.Printf("  - %s (%s)\n", source.Title, source.URI)
				}
			}
			return nil
		},
	}
}

func predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Predict 30-day price targets for the demo portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			insight := voicetrader.NewInsightClient(cfg)
			predictions, err := insight.PredictPrices(cmd.Context(), voicetrader.MockPortfolio)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(predictions, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func insightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insight [question...]",
		Short: "Ask a one-off market question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			insight := voicetrader.NewInsightClient(cfg)
			answer, err := insight.MarketInsight(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}
}

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Audio device management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := voicetrader.ListAudioDevices()
			if err != nil {
				return err
			}

			fmt.Println("Available audio devices (* = default):")
			for _, device := range devices {
				fmt.Println(voicetrader.DescribeDevice(device))
			}
			return nil
		},
	})

	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			cfg.PrintConfig()

			if issues := cfg.Validate(); len(issues) > 0 {
				fmt.Println("\nIssues:")
				for _, issue := range issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
		},
	}
}
