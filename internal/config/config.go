// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot     BotConfig     `mapstructure:"bot"`
	Data    DataConfig    `mapstructure:"data"`
	Web     WebConfig     `mapstructure:"web"`
	Economy EconomyConfig `mapstructure:"economy"`
	Floor   FloorConfig   `mapstructure:"floor"`
	Follow  FollowConfig  `mapstructure:"follow"`
	Games   GamesConfig   `mapstructure:"games"`
}

// BotConfig holds room connection and identity configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	RoomID      string        `mapstructure:"room_id"`
	Endpoint    string        `mapstructure:"endpoint"`
	Owner       string        `mapstructure:"owner"`
	SecondOwner string        `mapstructure:"second_owner"`
	Excluded    []string      `mapstructure:"excluded"`
	APITimeout  time.Duration `mapstructure:"api_timeout"`
}

// DataConfig holds persistence configuration.
type DataConfig struct {
	File string `mapstructure:"file"`
}

// WebConfig holds the keep-alive HTTP server configuration.
type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

// EconomyConfig holds points, cooldown, and VIP tier configuration.
type EconomyConfig struct {
	ChatWindow     time.Duration `mapstructure:"chat_window"`
	EmoteWindow    time.Duration `mapstructure:"emote_window"`
	ReactionWindow time.Duration `mapstructure:"reaction_window"`
	CommandWindow  time.Duration `mapstructure:"command_window"`
	ChatPoints     int           `mapstructure:"chat_points"`
	EmotePoints    int           `mapstructure:"emote_points"`
	ReactionPoints int           `mapstructure:"reaction_points"`
	JoinBonus      int           `mapstructure:"join_bonus"`
	TierDayGold    int           `mapstructure:"tier_day_gold"`
	TierWeekGold   int           `mapstructure:"tier_week_gold"`
	TierPermGold   int           `mapstructure:"tier_perm_gold"`
}

// FloorConfig holds floor automation configuration.
type FloorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MinBeat      time.Duration `mapstructure:"min_beat"`
	CacheBeats   int           `mapstructure:"cache_beats"`
}

// FollowConfig holds follow loop configuration.
type FollowConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	TrailOffset  float64       `mapstructure:"trail_offset"`
}

// GamesConfig holds minigame configuration.
type GamesConfig struct {
	RiddleDeadline   time.Duration `mapstructure:"riddle_deadline"`
	RiddlePoints     int           `mapstructure:"riddle_points"`
	WordRoundWindow  time.Duration `mapstructure:"word_round_window"`
	WordPoints       int           `mapstructure:"word_points"`
	WordMinInterval  time.Duration `mapstructure:"word_min_interval"`
	WordMaxInterval  time.Duration `mapstructure:"word_max_interval"`
	WordBonusGold    int           `mapstructure:"word_bonus_gold"`
	WordBonusOneIn   int           `mapstructure:"word_bonus_one_in"`
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, BOT_ROOM_ID, DATA_FILE.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.endpoint", "wss://highrise.game/web/botapi")
	v.SetDefault("bot.api_timeout", "8s")

	v.SetDefault("data.file", "room_data.json")
	v.SetDefault("web.addr", ":8080")

	v.SetDefault("economy.chat_window", "60s")
	v.SetDefault("economy.emote_window", "60s")
	v.SetDefault("economy.reaction_window", "60s")
	v.SetDefault("economy.command_window", "2s")
	v.SetDefault("economy.chat_points", 1)
	v.SetDefault("economy.emote_points", 2)
	v.SetDefault("economy.reaction_points", 3)
	v.SetDefault("economy.join_bonus", 5)
	v.SetDefault("economy.tier_day_gold", 30)
	v.SetDefault("economy.tier_week_gold", 100)
	v.SetDefault("economy.tier_perm_gold", 500)

	v.SetDefault("floor.poll_interval", "5s")
	v.SetDefault("floor.min_beat", "2s")
	v.SetDefault("floor.cache_beats", 5)

	v.SetDefault("follow.poll_interval", "2s")
	v.SetDefault("follow.trail_offset", 1.0)

	v.SetDefault("games.riddle_deadline", "25s")
	v.SetDefault("games.riddle_points", 10)
	v.SetDefault("games.word_round_window", "20s")
	v.SetDefault("games.word_points", 5)
	v.SetDefault("games.word_min_interval", "1m")
	v.SetDefault("games.word_max_interval", "8m")
	v.SetDefault("games.word_bonus_gold", 5)
	v.SetDefault("games.word_bonus_one_in", 5)
}

// IsOwner checks if a username is one of the two operating identities.
// Comparison is case-insensitive because the platform displays usernames
// with original casing but accepts either in commands.
func (c *Config) IsOwner(username string) bool {
	lower := strings.ToLower(username)
	return lower == strings.ToLower(c.Bot.Owner) ||
		(c.Bot.SecondOwner != "" && lower == strings.ToLower(c.Bot.SecondOwner))
}

// IsExcluded checks if a username is excluded from leaderboards
// (operating identities and designated service accounts).
func (c *Config) IsExcluded(username string) bool {
	if c.IsOwner(username) {
		return true
	}
	lower := strings.ToLower(username)
	for _, e := range c.Bot.Excluded {
		if lower == strings.ToLower(e) {
			return true
		}
	}
	return false
}
