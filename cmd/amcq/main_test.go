package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/amcq/internal/config"
	"github.com/verte-zerg/amcq/internal/model"
)

func TestApplySettingsFlags(t *testing.T) {
	cmd := newSettingsCmd()
	if err := cmd.ParseFlags([]string{"--levels", "amc10,AIME", "--year-min", "2015", "--year-max", "2010", "--timer", "5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	got, changed, err := applySettingsFlags(cmd, model.DefaultSettings())
	if err != nil {
		t.Fatalf("apply flags: %v", err)
	}
	if !changed {
		t.Fatalf("expected settings to change")
	}
	if len(got.Levels) != 2 || got.Levels[0] != model.AMC10 || got.Levels[1] != model.AIME {
		t.Fatalf("unexpected levels: %v", got.Levels)
	}
	if got.YearMin != 2010 || got.YearMax != 2010 {
		t.Fatalf("expected clamped years, got %d-%d", got.YearMin, got.YearMax)
	}
	if got.TimerMinutes != 5 || got.ProblemMax != 25 {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestApplySettingsFlagsUnchanged(t *testing.T) {
	cmd := newSettingsCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	_, changed, err := applySettingsFlags(cmd, model.DefaultSettings())
	if err != nil || changed {
		t.Fatalf("expected no change, got changed=%v err=%v", changed, err)
	}
}

func TestApplySettingsFlagsRejectsUnknownLevel(t *testing.T) {
	cmd := newSettingsCmd()
	if err := cmd.ParseFlags([]string{"--levels", "USAMO"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, _, err := applySettingsFlags(cmd, model.DefaultSettings()); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestWriteSettings(t *testing.T) {
	var buf bytes.Buffer
	s := model.DefaultSettings()
	s.TimerMinutes = 3
	if err := writeSettings(&buf, s); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"AMC8, AMC10, AMC12, AIME", "2000-2020", "AIME problems: 1-15", "3 min"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	tpl := defaultConfigTemplate()
	var cfg config.FileConfig
	if _, err := toml.Decode(tpl, &cfg); err != nil {
		t.Fatalf("template is not valid toml: %v", err)
	}
	for _, section := range []string{"[proxy]", "[practice]", "[log]", config.EnvProxyURL} {
		if !strings.Contains(tpl, section) {
			t.Fatalf("template missing %q", section)
		}
	}

	uncommented := strings.ReplaceAll(tpl, "# base-url", "base-url")
	uncommented = strings.ReplaceAll(uncommented, "# skip-solved", "skip-solved")
	if _, err := toml.Decode(uncommented, &cfg); err != nil {
		t.Fatalf("uncommented template is not valid toml: %v", err)
	}
	if cfg.Proxy.BaseURL == nil || cfg.Practice.SkipSolved == nil || *cfg.Practice.SkipSolved {
		t.Fatalf("unexpected decoded config: %+v", cfg)
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--timeout", "3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	fromFile := 30
	applyIntConfig(cmd, "timeout", &practiceTimeout, &fromFile)
	if practiceTimeout != 3 {
		t.Fatalf("flag should win, got %d", practiceTimeout)
	}
	attempts := 4
	applyIntConfig(cmd, "max-attempts", &practiceMaxAttempts, &attempts)
	if practiceMaxAttempts != 4 {
		t.Fatalf("config should fill unset flag, got %d", practiceMaxAttempts)
	}
}

func TestParseOptionalLevel(t *testing.T) {
	if l, err := parseOptionalLevel(""); err != nil || l != "" {
		t.Fatalf("empty level: %v %v", l, err)
	}
	if l, err := parseOptionalLevel("aime"); err != nil || l != model.AIME {
		t.Fatalf("aime: %v %v", l, err)
	}
	if _, err := parseOptionalLevel("putnam"); err == nil {
		t.Fatalf("expected error")
	}
}
