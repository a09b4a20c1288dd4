// Package config loads server configuration from the environment. Each
// binary reads its own config struct at startup; defaults make a single-host
// development setup work with no environment at all.
package config

import (
	"os"
	"strconv"
	"time"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// MasterConfig configures the master server binary.
type MasterConfig struct {
	Addr          string
	MaxPlayers    int
	AllowGuests   bool
	GuestName     string
	DatabaseURL   string
	RedisAddr     string
	RedisDB       int
	EventQueue    string
	CreateTimeout time.Duration
	SessionExpire time.Duration
}

func LoadMaster() MasterConfig {
	return MasterConfig{
		Addr:          getEnv("MASTER_ADDR", ":8000"),
		MaxPlayers:    getEnvInt("MASTER_MAX_PLAYERS", 0),
		AllowGuests:   getEnvBool("MASTER_ALLOW_GUESTS", true),
		GuestName:     getEnv("MASTER_GUEST_NAME", "Guest"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		EventQueue:    getEnv("REDIS_EVENT_QUEUE", ""),
		CreateTimeout: getEnvDuration("MASTER_CREATE_TIMEOUT", 30*time.Second),
		SessionExpire: getEnvDuration("MASTER_SESSION_EXPIRE", 24*time.Hour),
	}
}

// ZoneConfig configures the zone server binary.
type ZoneConfig struct {
	IP            string
	Port          int
	MasterIP      string
	MasterPort    int
	GameBinary    string
	Headless      bool
	GameBasePort  int
	MaxRooms      int
	PreSpawnRooms int
	SpawnTimeout  time.Duration
}

func LoadZone() ZoneConfig {
	return ZoneConfig{
		IP:            getEnv("ZONE_IP", "127.0.0.1"),
		Port:          getEnvInt("ZONE_PORT", 8100),
		MasterIP:      getEnv("MASTER_IP", "127.0.0.1"),
		MasterPort:    getEnvInt("MASTER_PORT", 8000),
		GameBinary:    getEnv("ZONE_GAME_BINARY", "./gameserver"),
		Headless:      getEnvBool("ZONE_GAME_HEADLESS", true),
		GameBasePort:  getEnvInt("ZONE_GAME_BASE_PORT", 9000),
		MaxRooms:      getEnvInt("ZONE_MAX_ROOMS", 50),
		PreSpawnRooms: getEnvInt("ZONE_PRESPAWN_ROOMS", 0),
		SpawnTimeout:  getEnvDuration("ZONE_SPAWN_TIMEOUT", 30*time.Second),
	}
}

// GameConfig configures a standalone game server. Spawned game servers take
// host and port from their command line and the rest of their room config
// from the zone, so only the standalone path reads most of these.
type GameConfig struct {
	IP             string
	Port           int
	MasterIP       string
	MasterPort     int
	Name           string
	MaxPlayers     int
	Password       string
	HideWhenFull   bool
	CloseWhenEmpty bool
	EmptyInterval  time.Duration
}

func LoadGame() GameConfig {
	return GameConfig{
		IP:             getEnv("GAME_IP", "127.0.0.1"),
		Port:           getEnvInt("GAME_PORT", 9000),
		MasterIP:       getEnv("MASTER_IP", "127.0.0.1"),
		MasterPort:     getEnvInt("MASTER_PORT", 8000),
		Name:           getEnv("GAME_NAME", "Default game"),
		MaxPlayers:     getEnvInt("GAME_MAX_PLAYERS", 4),
		Password:       getEnv("GAME_PASSWORD", ""),
		HideWhenFull:   getEnvBool("GAME_HIDE_WHEN_FULL", false),
		CloseWhenEmpty: getEnvBool("GAME_CLOSE_WHEN_EMPTY", true),
		EmptyInterval:  getEnvDuration("GAME_EMPTY_INTERVAL", 30*time.Second),
	}
}
