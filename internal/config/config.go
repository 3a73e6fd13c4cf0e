package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/recibo/internal/model"
)

// TokenEnv overrides api.token when set.
const TokenEnv = "RECIBO_TOKEN"

// Config represents the top-level recibo.yaml configuration.
type Config struct {
	Organization OrganizationConfig `yaml:"organization"`
	API          APIConfig          `yaml:"api"`
	Accounts     []model.Account    `yaml:"accounts"`
	AccountsFile string             `yaml:"accounts_file,omitempty"`
	Signers      []string           `yaml:"signers,omitempty"`
	Cache        CacheConfig        `yaml:"cache"`
	Audit        AuditConfig        `yaml:"audit"`
	Output       OutputConfig       `yaml:"output"`
	Server       ServerConfig       `yaml:"server"`
}

// OrganizationConfig is the branding printed on every receipt page.
type OrganizationConfig struct {
	Name         string   `yaml:"name"`
	AddressLines []string `yaml:"address_lines,omitempty"`
	LogoPath     string   `yaml:"logo_path,omitempty"`
}

// APIConfig locates the remote accounting API.
type APIConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Token              string        `yaml:"token,omitempty"`
	CollectionEndpoint string        `yaml:"collection_endpoint"` // empty = local-only mode
	ListTimeout        time.Duration `yaml:"list_timeout"`
	SubmitTimeout      time.Duration `yaml:"submit_timeout"`
	PageSize           int           `yaml:"page_size"`
	PagePause          time.Duration `yaml:"page_pause"`
}

// CacheConfig controls the client directory cache.
type CacheConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty"` // shared snapshot store when set
}

// AuditConfig locates the append-only audit log.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig controls where the CLI writes receipt documents.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig controls `recibo serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a recibo.yaml file from disk and applies the token override.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if tok := os.Getenv(TokenEnv); tok != "" {
		cfg.API.Token = tok
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new installation.
func Default(orgName string) *Config {
	const base = "https://api.sos-contador.com/api-comunidad"
	return &Config{
		Organization: OrganizationConfig{
			Name: orgName,
		},
		API: APIConfig{
			BaseURL:            base,
			CollectionEndpoint: base + "/cobro/",
			ListTimeout:        30 * time.Second,
			SubmitTimeout:      60 * time.Second,
			PageSize:           50,
			PagePause:          200 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL: 300 * time.Second,
		},
		Audit: AuditConfig{
			Path: "log_recibos.csv",
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate reports every problem with cfg, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize))
	}
	if len(c.Accounts) == 0 && c.AccountsFile == "" {
		errs = append(errs, errors.New("no payment accounts configured"))
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("account with ledger id %d has no name", a.LedgerID))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate account name %q", name))
		}
		seen[name] = true
	}
	if c.Audit.Path == "" {
		errs = append(errs, errors.New("audit.path is required"))
	}
	return errors.Join(errs...)
}

// SignerAllowed reports whether name may sign receipts. An empty signer is
// always allowed; an empty signer list allows anyone.
func (c *Config) SignerAllowed(name string) bool {
	if name == "" || len(c.Signers) == 0 {
		return true
	}
	for _, s := range c.Signers {
		if s == name {
			return true
		}
	}
	return false
}

// ResolvePaths makes relative file paths absolute against dir, normally the
// directory holding recibo.yaml.
func (c *Config) ResolvePaths(dir string) {
	for _, p := range []*string{
		&c.Organization.LogoPath,
		&c.AccountsFile,
		&c.Audit.Path,
		&c.Output.Dir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
