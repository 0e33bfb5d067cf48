// Package config provides configuration types and loading for panelpilot.
package config

// Config is the root configuration struct.
type Config struct {
	Panel    PanelConfig    `json:"panel"`
	Channels ChannelsConfig `json:"channels"`
	Dispatch DispatchConfig `json:"dispatch"`
	Poller   PollerConfig   `json:"poller"`
	Journal  JournalConfig  `json:"journal"`
}

// PanelConfig locates and authenticates against the cloud panel.
// APIKey may be left empty when the key is stored in the system keyring
// (see the secrets package).
type PanelConfig struct {
	URL    string `json:"url" envconfig:"URL"`
	APIKey string `json:"apiKey" envconfig:"API_KEY"`
}

// ChannelsConfig contains all chat surface configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

// TelegramConfig configures the Telegram surface. AllowFrom is the operator
// allow-list; senders outside it never reach the dispatcher.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"ENABLED"`
	Token     string   `json:"token" envconfig:"TOKEN"`
	AllowFrom []string `json:"allowFrom" envconfig:"ALLOW_FROM"`
	APIBase   string   `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// SlackConfig configures the Slack surface (Socket Mode).
type SlackConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"ENABLED"`
	BotToken  string   `json:"botToken" envconfig:"BOT_TOKEN"`
	AppToken  string   `json:"appToken" envconfig:"APP_TOKEN"`
	AllowFrom []string `json:"allowFrom" envconfig:"ALLOW_FROM"`
}

// DispatchConfig tunes the state machine.
type DispatchConfig struct {
	ConfirmWindowSeconds int `json:"confirmWindowSeconds" envconfig:"CONFIRM_WINDOW_SECONDS"`
}

// PollerConfig tunes the background job watcher.
type PollerConfig struct {
	IntervalSeconds int `json:"intervalSeconds" envconfig:"INTERVAL_SECONDS"`
	MaxAttempts     int `json:"maxAttempts" envconfig:"MAX_ATTEMPTS"`
}

// JournalConfig locates the job journal database.
type JournalConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Dispatch: DispatchConfig{ConfirmWindowSeconds: 5},
		Poller:   PollerConfig{IntervalSeconds: 5, MaxAttempts: 120},
	}
}
