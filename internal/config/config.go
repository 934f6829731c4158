package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Auth struct {
		TokenTTLHours int `yaml:"token_ttl_hours"`
	} `yaml:"auth"`

	LLM struct {
		Enabled     bool   `yaml:"enabled"`
		OllamaURL   string `yaml:"ollama_url"`
		Model       string `yaml:"model"`
		VisionModel string `yaml:"vision_model"`
	} `yaml:"llm"`

	Fetch struct {
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		HostReqPerSec  float64 `yaml:"host_req_per_sec"`
		HostBurst      int     `yaml:"host_burst"`
	} `yaml:"fetch"`

	Search struct {
		MaxResults int `yaml:"max_results"`
	} `yaml:"search"`

	Followup struct {
		AfterDays      int `yaml:"after_days"`
		RecomputeHours int `yaml:"recompute_hours"`
	} `yaml:"followup"`

	ReplyPoll struct {
		Enabled     bool   `yaml:"enabled"`
		IMAPHost    string `yaml:"imap_host"`
		IMAPPort    int    `yaml:"imap_port"`
		Username    string `yaml:"username"`
		Mailbox     string `yaml:"mailbox"`
		PollSeconds int    `yaml:"poll_seconds"`
		MaxPerCycle int    `yaml:"max_per_cycle"`
	} `yaml:"reply_poll"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default returns the built-in configuration used when no config file ships
// alongside the binary.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.Auth.TokenTTLHours = 24 * 7
	cfg.LLM.Enabled = true
	cfg.LLM.OllamaURL = "http://localhost:11434"
	cfg.LLM.Model = "qwen3:4b"
	cfg.LLM.VisionModel = "llama3.2-vision"
	cfg.Fetch.TimeoutSeconds = 15
	cfg.Fetch.HostReqPerSec = 1.0
	cfg.Fetch.HostBurst = 2
	cfg.Search.MaxResults = 5
	cfg.Followup.AfterDays = 7
	cfg.Followup.RecomputeHours = 6
	cfg.ReplyPoll.Mailbox = "INBOX"
	cfg.ReplyPoll.PollSeconds = 300
	cfg.ReplyPoll.MaxPerCycle = 25
	return cfg
}
