package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/phonoecho/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8501")
				convey.So(cfg.Language, convey.ShouldEqual, "ja")
				convey.So(cfg.AuditWorkers, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ECHO_ADDR", ":8080")
			_ = os.Setenv("ECHO_LANGUAGE", "en")
			_ = os.Setenv("ECHO_SPEECH_KEY", "secret")
			_ = os.Setenv("ECHO_CHAT_TEMPERATURE", "0.2")
			_ = os.Setenv("ECHO_SESSION_TTL", "30m")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Language, convey.ShouldEqual, "en")
				convey.So(cfg.SpeechKey, convey.ShouldEqual, "secret")
				convey.So(cfg.SpeechConfigured(), convey.ShouldBeTrue)
				convey.So(cfg.ChatTemperature, convey.ShouldEqual, 0.2)
				convey.So(cfg.SessionTTL, convey.ShouldEqual, 30*time.Minute)
			})
		})

		convey.Convey("When loading config with a YAML file and env on top", func() {
			path := writeConfig(t, `
addr: ":9090"
data_dir: /srv/echo
chat_model: gpt-4o
bcrypt_cost: 10
`)
			_ = os.Setenv("ECHO_CONFIG", path)
			_ = os.Setenv("ECHO_BCRYPT_COST", "11")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should win over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DataDir, convey.ShouldEqual, "/srv/echo")
				convey.So(cfg.ChatModel, convey.ShouldEqual, "gpt-4o")
				convey.So(cfg.BcryptCost, convey.ShouldEqual, 11)
				convey.So(cfg.ChatMaxTokens, convey.ShouldEqual, 800)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			path := writeConfig(t, `invalid: yaml: content: [`)
			_ = os.Setenv("ECHO_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("ECHO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("ECHO_CHAT_MAX_TOKENS", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the sample rate is unsupported", func() {
			_ = os.Setenv("ECHO_SAMPLE_RATE", "8000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "sample_rate")
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"ECHO_CONFIG",
		"ECHO_ADDR",
		"ECHO_LANGUAGE",
		"ECHO_SPEECH_KEY",
		"ECHO_CHAT_TEMPERATURE",
		"ECHO_CHAT_MAX_TOKENS",
		"ECHO_SESSION_TTL",
		"ECHO_BCRYPT_COST",
		"ECHO_SAMPLE_RATE",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "echo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
