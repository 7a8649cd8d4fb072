package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/dc-invoice/internal/challan"
	"github.com/zombor/dc-invoice/internal/invoice"
	"github.com/zombor/dc-invoice/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// engineConfig holds the flags needed to construct an OCR engine
type engineConfig struct {
	engine        string
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
	tesseractLang string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("dc-invoice")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		engine        = fs.StringLong("engine", "stub", "OCR engine: 'stub', 'tesseract', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2-vl)")
		tesseractLang = fs.StringLong("tesseract-lang", "eng", "Tesseract languages, '+' separated (e.g., eng+hin)")
		taxRate       = fs.Float64Long("tax-rate", challan.DefaultTaxRate, "GST rate applied to the subtotal (0 to 1)")
		fabricType    = fs.StringLong("fabric-type", challan.DefaultFabricType, "Fabric type written on every line item")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_             = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DC_INVOICE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// A bad tax rate must stop the process here, not fail per request
	calculator, err := challan.NewCalculator(*taxRate)
	if err != nil {
		slog.Error("Invalid tax rate", "tax_rate", *taxRate, "error", err)
		os.Exit(1)
	}

	// The engine is created once and shared by all requests
	scanner, err := newScanner(engineConfig{
		engine:        *engine,
		geminiKey:     *geminiKey,
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
		tesseractLang: *tesseractLang,
	})
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "engine", *engine, "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	invoiceService := invoice.NewService(scanner, calculator, *fabricType)
	server := invoice.NewServer(invoiceService, version)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"engine", scanner.Name(),
		"tax_rate", calculator.TaxRate(),
		"version", version,
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// newScanner builds the configured OCR engine
func newScanner(cfg engineConfig) (scanning.Scanner, error) {
	switch cfg.engine {
	case "stub":
		slog.Info("Using stub scanner; uploads return sample text")
		return scanning.NewStub(), nil
	case "tesseract":
		langs := strings.Split(cfg.tesseractLang, "+")
		slog.Info("Initializing Tesseract scanner...", "languages", langs)
		s, err := scanning.NewTesseract(langs...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		return scanning.NewGemini(apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	default:
		return nil, fmt.Errorf("invalid engine %q: valid engines are stub, tesseract, gemini or ollama", cfg.engine)
	}
}
