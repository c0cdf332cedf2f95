package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/yfzhou0904/go-to-ptpimg/util"
)

type Config struct {
	PTPImg ConfigPTPImg `toml:"ptpimg"`
	Output ConfigOutput `toml:"output"`
	Image  ConfigImage  `toml:"image"`
}
type ConfigPTPImg struct {
	APIKey  string   `toml:"api_key"`
	Timeout Duration `toml:"timeout"`
}
type ConfigOutput struct {
	BBCode    bool `toml:"bbcode"`
	Clipboard bool `toml:"clipboard"`
	Bell      bool `toml:"bell"`
}
type ConfigImage struct {
	MaxDimension int `toml:"max_dimension"`
}

// Duration reads "30s" style strings from TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func defaultConfig() Config {
	return Config{
		Output: ConfigOutput{
			Clipboard: true,
			Bell:      true,
		},
	}
}

// exampleConfig is what "go-to-ptpimg config" writes for a fresh install
func exampleConfig() Config {
	conf := defaultConfig()
	conf.PTPImg.APIKey = "YOUR_PTPIMG_API_KEY"
	conf.PTPImg.Timeout = Duration{30 * time.Second}
	return conf
}

func defaultConfigPath() (string, error) {
	dir, err := util.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	conf := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return conf, nil
	}
	if err != nil {
		return conf, err
	}
	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return conf, nil
}

// resolveAPIKey prefers the flag, then the environment, then the config file
func resolveAPIKey(flagValue string, conf Config) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(envAPIKey); env != "" {
		return env
	}
	return conf.PTPImg.APIKey
}

func initConfig(path string) error {
	fmt.Fprintln(os.Stderr, "Initializing example config file at", path)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	conf := exampleConfig()
	return toml.NewEncoder(file).Encode(&conf)
}

func openTextEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
