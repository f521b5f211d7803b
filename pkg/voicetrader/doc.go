// Package voicetrader implements a voice-driven mock trading assistant for
// the Indian stock market (NSE), built on a bidirectional audio streaming
// session with a speech-capable model backend.
//
// # Overview
//
// The package provides:
//   - A session controller that owns microphone capture, audio playback and
//     the live websocket stream as one unit with deterministic cleanup
//   - A gapless playback scheduler for synthesized audio chunks
//   - Tool-call execution for simulated trades, price lookups and
//     AI-generated market insights
//   - Live transcripts for both sides of the conversation
//   - A REST client for portfolio analysis, grounded news and structured
//     price predictions
//   - A dashboard HTTP API with mock JWT login
//
// # Quick Start
//
//	cfg := voicetrader.NewConfig()
//	insight := voicetrader.NewInsightClient(cfg)
//	controller := voicetrader.NewSessionController(cfg, insight, nil)
//
//	controller.SetTradeHandler(func(order voicetrader.TradeOrder) {
//		fmt.Printf("%s %d %s\n", order.Action, order.Quantity, order.Symbol)
//	})
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := controller.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Session Lifecycle
//
// At most one voice session is open at a time. Start acquires the
// microphone, the output device and the live stream in order; any failure
// releases everything acquired so far. Stop is idempotent and attempts
// every release step independently. Tool calls that complete after their
// session ended are dropped, never delivered to a newer session.
//
// # Audio Format
//
// The uplink carries 16 kHz mono PCM16 quantized from float32 capture
// frames; the downlink plays 24 kHz mono PCM16. Both rates are fixed by
// the live endpoint.
//
// # Configuration
//
// Configuration comes from the environment (a .env file is honored):
// GEMINI_API_KEY is required for every AI-backed feature, and
// VOICETRADER_* variables override models, endpoints, buffer sizes and
// debug switches. See Config for the full list.
//
// # Dependencies
//
//   - github.com/gordonklaus/portaudio: audio I/O
//   - github.com/gorilla/websocket: live streaming transport
//   - github.com/cenkalti/backoff/v4: dial retry policy
//   - github.com/shopspring/decimal: exact price arithmetic
//   - github.com/gorilla/mux, github.com/rs/cors: dashboard API
//   - github.com/golang-jwt/jwt/v4: mock login tokens
//   - github.com/rs/zerolog: structured logging
//   - github.com/spf13/cobra: CLI framework
//   - github.com/joho/godotenv: environment variables
package voicetrader
