package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/zhouzirui/research-desk/backend/internal/config"
	researchModel "github.com/zhouzirui/research-desk/backend/internal/model/research"
	"github.com/zhouzirui/research-desk/backend/internal/model/session"
	"github.com/zhouzirui/research-desk/backend/internal/render"
	"github.com/zhouzirui/research-desk/backend/internal/service/langgraph"
	"github.com/zhouzirui/research-desk/backend/internal/service/research"
)

// memoryStorage holds the thread id for the lifetime of one invocation.
type memoryStorage map[string]string

func (m memoryStorage) Value(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memoryStorage) SetValue(key, value string) error {
	m[key] = value
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	topic := flag.StringP("topic", "t", researchModel.DefaultTopic, "research topic")
	analysts := flag.IntP("analysts", "n", researchModel.DefaultMaxAnalysts, "number of analysts (1-10)")
	feedback := flag.StringP("feedback", "f", researchModel.DefaultFeedback, "initial human feedback")
	thread := flag.String("thread", "", "reuse an existing thread id")
	serviceURL := flag.String("url", "", "graph service URL (overrides RESEARCH_SERVICE_URL)")
	timeout := flag.Duration("timeout", 0, "abort the run after this long (0 = no limit)")
	asJSON := flag.Bool("json", false, "print the aggregated state as JSON")
	width := flag.Int("width", 80, "card width for terminal output")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env loaded, using system environment: %v", err)
	}
	if *serviceURL != "" {
		os.Setenv("RESEARCH_SERVICE_URL", *serviceURL)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	input := researchModel.NewRunInput(*topic, *analysts, *feedback)
	if err := input.Validate(); err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	var opts []langgraph.Option
	if cfg.Research.APIKey != "" {
		opts = append(opts, langgraph.WithAPIKey(cfg.Research.APIKey))
	}
	client, err := langgraph.NewClient(cfg.Research.ServiceURL, opts...)
	if err != nil {
		log.Fatalf("failed to create graph client: %v", err)
	}

	runTimeout := cfg.Research.RunTimeout
	if *timeout > 0 {
		runTimeout = *timeout
	}
	svc := research.NewService(client, research.Config{
		AssistantID: cfg.Research.AssistantID,
		Timeout:     runTimeout,
	})

	storage := memoryStorage{}
	if *thread != "" {
		storage[session.KeyThreadID] = *thread
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	result, err := svc.Run(ctx, storage, input, func(state researchModel.State) {
		keys := make([]string, 0, len(state))
		for k := range state {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		log.Printf("[researchctl] snapshot keys=%v", keys)
	})
	if err != nil {
		log.Fatalf("research run failed: %v", err)
	}
	log.Printf("[researchctl] thread=%s run=%s finished in %s", result.ThreadID, result.RunID, time.Since(started).Round(time.Millisecond))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.State); err != nil {
			log.Fatalf("failed to encode state: %v", err)
		}
		return
	}

	view, err := render.NewView(result.State)
	if err != nil {
		log.Fatalf("failed to render result: %v", err)
	}
	fmt.Print(render.Terminal(view, *width))
}
