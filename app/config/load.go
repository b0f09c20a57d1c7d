package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
)

// Load builds the configuration from defaults, an optional HCL file, an optional
// dotenv file and the process environment, in increasing order of precedence.
// Empty paths skip the corresponding file; a missing dotenv file is not an error.
func Load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := applyFile(cfg, configFile); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type fileConfig struct {
	Server    *fileServer    `hcl:"server,block"`
	LLM       *fileLLM       `hcl:"llm,block"`
	Store     *fileStore     `hcl:"store,block"`
	Auth      *fileAuth      `hcl:"auth,block"`
	RateLimit *fileRateLimit `hcl:"rate_limit,block"`
	Site      *fileSite      `hcl:"site,block"`
	Admin     *fileAdmin     `hcl:"admin,block"`
	Log       *fileLog       `hcl:"log,block"`
}

type fileServer struct {
	Host         string `hcl:"host,optional"`
	Port         int    `hcl:"port,optional"`
	ReadTimeout  string `hcl:"read_timeout,optional"`
	WriteTimeout string `hcl:"write_timeout,optional"`
	MaxBodyBytes int64  `hcl:"max_body_bytes,optional"`
}

type fileLLM struct {
	Provider string `hcl:"provider,optional"`
	APIKey   string `hcl:"api_key,optional"`
	BaseURL  string `hcl:"base_url,optional"`
	Model    string `hcl:"model,optional"`
	Timeout  string `hcl:"timeout,optional"`
}

type fileStore struct {
	Driver        string `hcl:"driver,optional"`
	Path          string `hcl:"path,optional"`
	MongoURI      string `hcl:"mongo_uri,optional"`
	MongoDatabase string `hcl:"mongo_database,optional"`
}

type fileAuth struct {
	AuthorizationKey string `hcl:"authorization_key,optional"`
}

type fileRateLimit struct {
	Max              int  `hcl:"max,optional"`
	DurationSeconds  int  `hcl:"duration_seconds,optional"`
	BehindCloudflare bool `hcl:"behind_cloudflare,optional"`
}

type fileSite struct {
	PublicDir         string `hcl:"public_dir,optional"`
	PosthogProjectKey string `hcl:"posthog_project_key,optional"`
	PosthogAPIHost    string `hcl:"posthog_api_host,optional"`
}

type fileAdmin struct {
	Addr string `hcl:"addr,optional"`
}

type fileLog struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	var errs []error
	if s := fc.Server; s != nil {
		setString(&cfg.Server.Host, s.Host)
		setInt(&cfg.Server.Port, s.Port)
		errs = append(errs, setDuration(&cfg.Server.ReadTimeout, "server.read_timeout", s.ReadTimeout))
		errs = append(errs, setDuration(&cfg.Server.WriteTimeout, "server.write_timeout", s.WriteTimeout))
		if s.MaxBodyBytes > 0 {
			cfg.Server.MaxBodyBytes = s.MaxBodyBytes
		}
	}
	if l := fc.LLM; l != nil {
		setString(&cfg.LLM.Provider, l.Provider)
		setString(&cfg.LLM.APIKey, l.APIKey)
		setString(&cfg.LLM.BaseURL, l.BaseURL)
		setString(&cfg.LLM.Model, l.Model)
		errs = append(errs, setDuration(&cfg.LLM.Timeout, "llm.timeout", l.Timeout))
	}
	if s := fc.Store; s != nil {
		setString(&cfg.Store.Driver, s.Driver)
		setString(&cfg.Store.Path, s.Path)
		setString(&cfg.Store.MongoURI, s.MongoURI)
		setString(&cfg.Store.MongoDatabase, s.MongoDatabase)
	}
	if a := fc.Auth; a != nil {
		setString(&cfg.Auth.AuthorizationKey, a.AuthorizationKey)
	}
	if r := fc.RateLimit; r != nil {
		setInt(&cfg.RateLimit.Max, r.Max)
		if r.DurationSeconds > 0 {
			cfg.RateLimit.Duration = time.Duration(r.DurationSeconds) * time.Second
		}
		cfg.RateLimit.BehindCloudflare = cfg.RateLimit.BehindCloudflare || r.BehindCloudflare
	}
	if s := fc.Site; s != nil {
		setString(&cfg.Site.PublicDir, s.PublicDir)
		setString(&cfg.Site.PosthogProjectKey, s.PosthogProjectKey)
		setString(&cfg.Site.PosthogAPIHost, s.PosthogAPIHost)
	}
	if a := fc.Admin; a != nil {
		setString(&cfg.Admin.Addr, a.Addr)
	}
	if l := fc.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
		setString(&cfg.Log.Format, l.Format)
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	e := &envReader{}

	e.strVar("HOST", &cfg.Server.Host)
	e.intVar("PORT", &cfg.Server.Port)
	e.durationVar("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.durationVar("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.int64Var("MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	e.strVar("LLM_PROVIDER", &cfg.LLM.Provider)
	e.strVar("GEMINI_API_KEY", &cfg.LLM.APIKey)
	e.strVar("LLM_BASE_URL", &cfg.LLM.BaseURL)
	e.strVar("LLM_MODEL", &cfg.LLM.Model)
	e.durationVar("LLM_TIMEOUT", &cfg.LLM.Timeout)

	e.strVar("STORE_DRIVER", &cfg.Store.Driver)
	e.strVar("STORE_PATH", &cfg.Store.Path)
	e.strVar("MONGO_URI", &cfg.Store.MongoURI)
	e.strVar("MONGO_DB", &cfg.Store.MongoDatabase)

	e.strVar("AUTHORIZATION_KEY", &cfg.Auth.AuthorizationKey)

	e.intVar("RATE_LIMIT_MAX", &cfg.RateLimit.Max)
	e.secondsVar("RATE_LIMIT_DURATION", &cfg.RateLimit.Duration)
	e.boolVar("IS_BEHIND_CLOUDFLARE_TUNNEL", &cfg.RateLimit.BehindCloudflare)

	e.strVar("PUBLIC_DIR", &cfg.Site.PublicDir)
	e.strVar("POSTHOG_PROJECT_API_KEY", &cfg.Site.PosthogProjectKey)
	e.strVar("POSTHOG_API_HOST", &cfg.Site.PosthogAPIHost)

	// An explicitly empty ADMIN_ADDR disables the admin listener.
	if v, ok := os.LookupEnv("ADMIN_ADDR"); ok {
		cfg.Admin.Addr = v
	}

	e.strVar("LOG_LEVEL", &cfg.Log.Level)
	e.strVar("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(e.errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) strVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) int64Var(key string, dst *int64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) secondsVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number of seconds %q", key, v))
		return
	}
	*dst = time.Duration(n) * time.Second
}

func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	if err := setDuration(dst, key, v); err != nil {
		e.errs = append(e.errs, err)
	}
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return
	}
	*dst = b
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", name, v)
	}
	*dst = d
	return nil
}
