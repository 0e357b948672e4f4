package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"

	"github.com/eringen/wikiengine"
)

// envPrefix scopes environment overrides, e.g. WIKI_OWNER_PASSWORD.
const envPrefix = "WIKI"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("name", "Wiki")
	v.SetDefault("url", "http://localhost:3000")
	v.SetDefault("addr", ":3000")
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_level", "info")
	v.SetDefault("sitemap_cache_ttl", "5m")
	return v
}

// bindFlags lets the root command's persistent flags override the config
// file and environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"data_dir":  "data-dir",
		"storage":   "storage",
		"log_level": "log-level",
		"addr":      "addr",
	} {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// readConfigFile loads path into v. JSON files may carry comments and
// trailing commas; they are standardized before viper sees them.
func readConfigFile(v *viper.Viper, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		std, err := hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("invalid JSONC in %s: %w", path, err)
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(std)); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return nil
}

func siteConfig(v *viper.Viper) wikiengine.SiteConfig {
	return wikiengine.SiteConfig{
		Name:            v.GetString("name"),
		URL:             v.GetString("url"),
		Addr:            v.GetString("addr"),
		DataDir:         v.GetString("data_dir"),
		PagesDir:        v.GetString("pages_dir"),
		RecyclerDir:     v.GetString("recycler_dir"),
		StorageDSN:      v.GetString("storage"),
		DefaultsDir:     v.GetString("defaults_dir"),
		PackageDir:      v.GetString("package_dir"),
		NoPlugins:       v.GetBool("no_plugins"),
		OwnerPassword:   v.GetString("owner_password"),
		SessionSecret:   v.GetString("session_secret"),
		CookieSecure:    v.GetBool("cookie_secure"),
		SitemapCacheTTL: v.GetDuration("sitemap_cache_ttl"),
		WatchPages:      v.GetBool("watch_pages"),
		LogLevel:        v.GetString("log_level"),
	}
}
