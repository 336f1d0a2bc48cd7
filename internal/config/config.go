package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/application.yaml"

type Application struct {
	Host      string    `koanf:"host"`
	Listen    string    `koanf:"listen"`
	Timezone  string    `koanf:"timezone"`
	Google    Google    `koanf:"google"`
	Calendars Calendars `koanf:"calendars"`
	Source    Source    `koanf:"source"`
	Sync      Sync      `koanf:"sync"`
	Watch     Watch     `koanf:"watch"`
	Redis     Redis     `koanf:"redis"`
	Database  Database  `koanf:"db"`
}

type Google struct {
	ClientId        string `koanf:"clientid"`
	ClientSecret    string `koanf:"clientsecret"`
	// CredentialsFile points to a service account key; when set it takes precedence over the OAuth flow.
	CredentialsFile string `koanf:"credentialsfile"`
}

// Calendars holds the provider identifiers of the three logical lesson calendars.
type Calendars struct {
	Main  string `koanf:"main"`
	Demo  string `koanf:"demo"`
	Owner string `koanf:"owner"`
}

// Source selects where raw events come from: "google" or "ics".
type Source struct {
	Kind string    `koanf:"kind"`
	ICS  Calendars `koanf:"ics"`
}

type Sync struct {
	OwnerTeacherName string        `koanf:"ownerteachername"`
	ReadyColor       string        `koanf:"readycolor"`
	DueColor         string        `koanf:"duecolor"`
	Cron             string        `koanf:"cron"`
	LockTTL          time.Duration `koanf:"lockttl"`
}

type Watch struct {
	WebhookURL string        `koanf:"webhookurl"`
	RenewCron  string        `koanf:"renewcron"`
	TTL        time.Duration `koanf:"ttl"`
}

type Redis struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type Database struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	User       string `koanf:"user"`
	Pass       string `koanf:"pass"`
	Name       string `koanf:"name"`
	Schema     string `koanf:"schema"`
	MaxConns   int32  `koanf:"maxconns"`
	// Migrations overrides the lookup of the migrations directory.
	Migrations string `koanf:"migrations"`
}

// Location resolves the configured timezone, falling back to UTC.
func (a Application) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %q, using UTC: %v", a.Timezone, err)
		return time.UTC
	}
	return loc
}

func defaults() Application {
	return Application{
		Host:     "http://localhost:8181",
		Listen:   ":8181",
		Timezone: "Asia/Tokyo",
		Source: Source{
			Kind: "google",
		},
		Sync: Sync{
			OwnerTeacherName: "Sham",
			ReadyColor:       "10",
			DueColor:         "4",
			LockTTL:          5 * time.Minute,
		},
		Watch: Watch{
			RenewCron: "@every 144h",
			TTL:       6 * 24 * time.Hour,
		},
		Redis: Redis{
			Host: "localhost",
			Port: 6379,
		},
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "lessonsync",
			Pass:     "",
			Name:     "lessonsync",
			Schema:   "lessonsync",
			MaxConns: 8,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "LESSONSYNC_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "LESSONSYNC_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
