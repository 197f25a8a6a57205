package threadrun

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
)

// Client is the main entry point for the threadrun service. A zero-setup
// task submission goes through Run; resource-level access goes through the
// service fields.
type Client struct {
	baseRESTURL   string
	baseSocketURL string
	apiKey        string
	timeout       time.Duration
	httpClient    *http.Client
	logger        *slog.Logger

	// Lazily resolved default environment id, owned by this instance.
	// Best-effort under concurrency: two first-time callers may both
	// resolve, last write wins.
	defaultEnvID atomic.Pointer[string]

	Environments   *EnvironmentService
	Threads        *ThreadService
	Agents         *AgentService
	Files          *FileService
	Git            *GitService
	Schedules      *ScheduleService
	Triggers       *TriggerService
	Orchestrations *OrchestrationService
	Billing        *BillingService
}

// NewClient creates a new client instance using the provided config.
func NewClient(cfg Config) (*Client, error) {
	env := loadEnvConfig()

	apiKey := firstNonEmpty(cfg.APIKey, env.apiKey)
	if apiKey == "" {
		return nil, newError(
			http.StatusUnauthorized,
			fmt.Sprintf("api key is required: set %s or pass Config.APIKey", constants.EnvAPIKey),
		)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = env.timeoutSeconds
	}
	if timeout <= 0 {
		timeout = constants.DefaultTimeoutSeconds
	}

	baseURL := firstNonEmpty(cfg.BaseURL, env.baseURL, constants.DefaultBaseURL)
	restBase, socketBase, err := normalizeBases(baseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client-wide timeout: streamed runs outlive any sane value,
		// deadlines are applied per request via context.
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseRESTURL:   restBase,
		baseSocketURL: socketBase,
		apiKey:        apiKey,
		timeout:       time.Duration(timeout) * time.Second,
		httpClient:    httpClient,
		logger:        logger,
	}

	c.Environments = &EnvironmentService{client: c}
	c.Threads = &ThreadService{client: c}
	c.Agents = &AgentService{client: c}
	c.Files = &FileService{client: c}
	c.Git = &GitService{client: c}
	c.Schedules = &ScheduleService{client: c}
	c.Triggers = &TriggerService{client: c}
	c.Orchestrations = &OrchestrationService{client: c}
	c.Billing = &BillingService{client: c}

	return c, nil
}

type envConfig struct {
	apiKey         string
	baseURL        string
	timeoutSeconds int
}

func loadEnvConfig() envConfig {
	cfg := envConfig{}
	cfg.apiKey = firstNonEmpty(os.Getenv(constants.EnvAPIKey), os.Getenv(constants.EnvAPIKeyAlt))
	cfg.baseURL = strings.TrimSpace(os.Getenv(constants.EnvBaseURL))

	if timeoutStr := os.Getenv(constants.EnvTimeout); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.timeoutSeconds = timeout
		}
	}

	return cfg
}

func normalizeBases(raw string) (string, string, error) {
	if raw == "" {
		raw = constants.DefaultBaseURL
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	trimmed := strings.TrimSuffix(raw, "/")

	restBase := trimmed + constants.DefaultAPIPrefix

	var socketBase string
	switch {
	case strings.HasPrefix(trimmed, "https://"):
		socketBase = "wss://" + strings.TrimPrefix(trimmed, "https://") + constants.DefaultAPIPrefix
	case strings.HasPrefix(trimmed, "http://"):
		socketBase = "ws://" + strings.TrimPrefix(trimmed, "http://") + constants.DefaultAPIPrefix
	default:
		return "", "", newError(http.StatusBadRequest, fmt.Sprintf("invalid base URL: %s", raw))
	}

	return restBase, socketBase, nil
}

func firstNonEmpty(values ...string) string {
	for _, candidate := range values {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func userAgent() string {
	return fmt.Sprintf("threadrun-go/%s", constants.Version)
}
