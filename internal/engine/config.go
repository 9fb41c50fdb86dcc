package engine

import (
	"bytes"
	"civsim-server/internal/simulation"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config хранит параметры запуска сервера и пакетов симуляций
type Config struct {
	// Seed - мастер-зерно. От него зависят зерна всех итераций пакета,
	// если запрос не задал свое.
	Seed int64 `yaml:"seed"`

	Port    string `yaml:"port"`
	DataDir string `yaml:"dataDir"`

	// DatabaseURL - необязательный Postgres для выгрузки отчетов.
	DatabaseURL string `yaml:"databaseUrl"`

	// TemplatePath - YAML шаблон игры. Пусто - встроенный шаблон.
	TemplatePath string `yaml:"template"`

	// Batch - параметры пакета по умолчанию.
	Batch simulation.Config `yaml:"batch"`
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return Config{
		Seed:    time.Now().UnixNano(),
		Port:    "8080",
		DataDir: "data",
		Batch:   simulation.DefaultConfig(),
	}
}

// LoadConfig читает YAML поверх значений по умолчанию.
// Поля, которых нет в файле, сохраняют значения NewConfig. Неизвестные ключи
// (в том числе batch.seed) - ошибка.
func LoadConfig(path string) (Config, error) {
	cfg := NewConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv перекрывает конфиг переменными окружения.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CIVSIM_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("CIVSIM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
}

// DatabasePath - файл sqlite внутри DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "civsim.db")
}
