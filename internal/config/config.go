package config

import (
	"errors"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"DiscussionScanner/internal/taxonomy"
)

const (
	configPathEnv    = "DISCUSSION_SCANNER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	chatGPTAPIKeyEnv = "CHATGPT_API_KEY"
	chatGPTModelEnv  = "CHATGPT_MODEL"
	githubTokenEnv   = "GITHUB_TOKEN"
)

// DefaultRelevanceThreshold is the single acceptance cutoff applied by
// every scan unless a run config overrides it.
const DefaultRelevanceThreshold = 0.3

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	ChatGPT  ChatGPTConfig  `yaml:"chatgpt"`
	Scan     ScanConfig     `yaml:"scan"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the control panel listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes the optional Postgres run store. An empty DSN
// disables database persistence entirely.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ChatGPTConfig defines how to contact the analysis API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// ScanConfig is the run configuration: which sources and categories to
// query, the acceptance threshold, and the output destination. The same
// shape is accepted as JSON by the control panel's start endpoint.
type ScanConfig struct {
	RelevanceThreshold float64          `yaml:"relevanceThreshold" json:"relevance_threshold"`
	ResultsPerSearch   int              `yaml:"resultsPerSearch" json:"results_per_search"`
	OutputFile         string           `yaml:"outputFile" json:"output_file"`
	Sources            SourcesConfig    `yaml:"sources" json:"sources"`
	Categories         CategoriesConfig `yaml:"categories" json:"categories"`

	// thresholdSet distinguishes an explicit relevanceThreshold: 0 in
	// the file from an absent key, which falls back to the default.
	thresholdSet bool
}

// UnmarshalYAML decodes the section and records whether the threshold
// key was present, so a literal zero survives the merge with defaults.
func (s *ScanConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ScanConfig
	var decoded plain
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*s = ScanConfig(decoded)

	var probe struct {
		RelevanceThreshold *float64 `yaml:"relevanceThreshold"`
	}
	if err := value.Decode(&probe); err == nil && probe.RelevanceThreshold != nil {
		s.thresholdSet = true
	}
	return nil
}

// SourcesConfig enumerates the supported content platforms.
type SourcesConfig struct {
	Reddit        RedditConfig `yaml:"reddit" json:"reddit"`
	GitHub        GitHubConfig `yaml:"github" json:"github"`
	StackOverflow SourceConfig `yaml:"stackoverflow" json:"stackoverflow"`
	HackerNews    SourceConfig `yaml:"hackernews" json:"hackernews"`
	Arxiv         SourceConfig `yaml:"arxiv" json:"arxiv"`
}

// SourceConfig is the minimal per-source switch.
type SourceConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// RedditConfig adds the subreddit containers to search within.
type RedditConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Subreddits []string `yaml:"subreddits" json:"subreddits"`
}

// GitHubConfig adds the optional API token.
type GitHubConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Token   string `yaml:"token" json:"token"`
}

// CategoriesConfig is a fixed enumeration mirroring the taxonomy, so an
// unknown category cannot be injected through config.
type CategoriesConfig struct {
	Connectivity CategoryConfig `yaml:"connectivity" json:"agent_connectivity"`
	Discovery    CategoryConfig `yaml:"discovery" json:"agent_discovery"`
	Identity     CategoryConfig `yaml:"identity" json:"agent_identity"`
}

// CategoryConfig enables one category and optionally narrows its keyword
// selection; an empty list keeps the taxonomy defaults.
type CategoryConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Selection builds the narrowed taxonomy view for this run.
func (s ScanConfig) Selection() taxonomy.Selection {
	enabled := map[taxonomy.CategoryID]bool{
		taxonomy.Connectivity: s.Categories.Connectivity.Enabled,
		taxonomy.Discovery:    s.Categories.Discovery.Enabled,
		taxonomy.Identity:     s.Categories.Identity.Enabled,
	}
	keywords := map[taxonomy.CategoryID][]string{
		taxonomy.Connectivity: s.Categories.Connectivity.Keywords,
		taxonomy.Discovery:    s.Categories.Discovery.Keywords,
		taxonomy.Identity:     s.Categories.Identity.Keywords,
	}
	return taxonomy.NewSelection(enabled, keywords)
}

// Validate rejects unusable run configurations before any work begins.
// Every failure carries a specific user-facing message.
func (s ScanConfig) Validate() error {
	if s.OutputFile == "" {
		return errors.New("output file path is required")
	}

	if !s.Sources.Reddit.Enabled && !s.Sources.GitHub.Enabled &&
		!s.Sources.StackOverflow.Enabled && !s.Sources.HackerNews.Enabled &&
		!s.Sources.Arxiv.Enabled {
		return errors.New("at least one source must be enabled")
	}

	if s.Sources.Reddit.Enabled && len(s.Sources.Reddit.Subreddits) == 0 {
		return errors.New("reddit is enabled but no subreddits are configured")
	}

	if s.Selection().Empty() {
		return errors.New("at least one enabled category must have keywords selected")
	}

	if s.RelevanceThreshold < 0 {
		return errors.New("relevance threshold must not be negative")
	}

	if s.ResultsPerSearch < 1 {
		return errors.New("results per search must be at least 1")
	}

	return nil
}

// Load reads YAML configuration and applies environment overrides. An
// empty path falls back to DISCUSSION_SCANNER_CONFIG; a missing file
// keeps the defaults.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(githubTokenEnv); v != "" {
		c.Scan.Sources.GitHub.Token = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if !zeroScan(override.Scan) {
		defaults := defaultConfig().Scan
		base.Scan = override.Scan
		if base.Scan.RelevanceThreshold == 0 && !base.Scan.thresholdSet {
			base.Scan.RelevanceThreshold = defaults.RelevanceThreshold
		}
		if base.Scan.ResultsPerSearch == 0 {
			base.Scan.ResultsPerSearch = defaults.ResultsPerSearch
		}
		if base.Scan.OutputFile == "" {
			base.Scan.OutputFile = defaults.OutputFile
		}
		if base.Scan.Sources.Reddit.Enabled && len(base.Scan.Sources.Reddit.Subreddits) == 0 {
			base.Scan.Sources.Reddit.Subreddits = defaults.Sources.Reddit.Subreddits
		}
	}

	return base
}

// zeroScan reports whether the file omitted the scan section entirely.
func zeroScan(s ScanConfig) bool {
	anySource := s.Sources.Reddit.Enabled || s.Sources.GitHub.Enabled ||
		s.Sources.StackOverflow.Enabled || s.Sources.HackerNews.Enabled ||
		s.Sources.Arxiv.Enabled
	anyCategory := s.Categories.Connectivity.Enabled || s.Categories.Discovery.Enabled ||
		s.Categories.Identity.Enabled
	return s.OutputFile == "" && s.RelevanceThreshold == 0 && !s.thresholdSet &&
		s.ResultsPerSearch == 0 && !anySource && !anyCategory
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080"},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are an expert analyst specializing in developer tools and multi-agent systems. Provide detailed, structured analysis with clear insights.",
		},
		Scan: ScanConfig{
			RelevanceThreshold: DefaultRelevanceThreshold,
			ResultsPerSearch:   20,
			OutputFile:         "agent_discussions.json",
			Sources: SourcesConfig{
				Reddit: RedditConfig{
					Enabled: true,
					Subreddits: []string{
						"MachineLearning", "artificial", "programming", "LocalLLaMA",
						"singularity", "compsci", "MachineLearningNews", "ArtificialIntelligence",
						"deeplearning", "ChatGPT", "OpenAI", "reinforcementlearning",
					},
				},
				GitHub:        GitHubConfig{Enabled: true},
				StackOverflow: SourceConfig{Enabled: true},
				HackerNews:    SourceConfig{Enabled: true},
				Arxiv:         SourceConfig{Enabled: true},
			},
			Categories: CategoriesConfig{
				Connectivity: CategoryConfig{Enabled: true},
				Discovery:    CategoryConfig{Enabled: true},
				Identity:     CategoryConfig{Enabled: true},
			},
		},
	}
}
