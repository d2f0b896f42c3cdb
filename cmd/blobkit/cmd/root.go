package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/blobkit"
)

var rootCmd = &cobra.Command{
	Use:   "blobkit",
	Short: "Content-addressed blob storage CLI",
	Long:  "CLI for storing and fetching content-addressed blobs across the configured backend.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/blobkit/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "backend: memory, sqlite, s3, oci")
	rootCmd.PersistentFlags().String("prefix", "", "key namespace prefix")
	rootCmd.PersistentFlags().Uint64("chunk-size", 0, "chunk size in bytes (0 = unchunked)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "max in-flight chunk uploads")
	rootCmd.PersistentFlags().Float64("read-qps", 0, "read rate limit (0 = unlimited)")
	rootCmd.PersistentFlags().Float64("write-qps", 0, "write rate limit (0 = unlimited)")
	rootCmd.PersistentFlags().String("put-behaviour", "", "overwrite, overwrite-and-log, if-absent, if-absent-and-log")
	rootCmd.PersistentFlags().String("sqlite-dir", "", "shard directory for the sqlite backend")
	rootCmd.PersistentFlags().Int("shards", 0, "shard count for the sqlite backend")
	rootCmd.PersistentFlags().String("s3-bucket", "", "bucket for the s3 backend")
	rootCmd.PersistentFlags().String("oci-repo", "", "repository ref for the oci backend")

	for _, key := range []string{
		"backend", "prefix", "chunk-size", "concurrency", "read-qps",
		"write-qps", "put-behaviour", "sqlite-dir", "shards", "s3-bucket", "oci-repo",
	} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BLOBKIT")
	viper.AutomaticEnv()
	viper.SetDefault("backend", "memory")
	viper.SetDefault("chunk-size", blobkit.DefaultChunkSize)
	viper.SetDefault("concurrency", blobkit.DefaultConcurrency)
	viper.SetDefault("shards", 2)

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blobkit")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "blobkit")
	}
	return ".blobkit"
}

// openStore builds a store from the resolved configuration.
func openStore() (*blobkit.Filestore, error) {
	opts := []blobkit.Option{
		blobkit.WithChunkSize(viper.GetUint64("chunk-size")),
		blobkit.WithConcurrency(viper.GetInt("concurrency")),
		blobkit.WithReadQPS(viper.GetFloat64("read-qps")),
		blobkit.WithWriteQPS(viper.GetFloat64("write-qps")),
	}
	if prefix := viper.GetString("prefix"); prefix != "" {
		opts = append(opts, blobkit.WithPrefix(prefix))
	}
	if pb := viper.GetString("put-behaviour"); pb != "" {
		behaviour, err := blobkit.ParsePutBehaviour(pb)
		if err != nil {
			return nil, err
		}
		opts = append(opts, blobkit.WithPutBehaviour(behaviour))
	}

	switch backend := viper.GetString("backend"); backend {
	case "memory":
		opts = append(opts, blobkit.WithMemoryBackend())
	case "sqlite":
		dir := viper.GetString("sqlite-dir")
		if dir == "" {
			return nil, fmt.Errorf("sqlite backend requires --sqlite-dir")
		}
		connector := blobkit.PooledConnector{
			DSNTemplate: "file:" + filepath.Join(dir, "shard_%04d.sqlite"),
		}
		opts = append(opts, blobkit.WithSQLBackend(connector, viper.GetInt("shards"), blobkit.SQLOptions{Compress: true}))
	case "s3":
		bucket := viper.GetString("s3-bucket")
		if bucket == "" {
			return nil, fmt.Errorf("s3 backend requires --s3-bucket")
		}
		opts = append(opts, blobkit.WithS3Backend(bucket))
	case "oci":
		repo := viper.GetString("oci-repo")
		if repo == "" {
			return nil, fmt.Errorf("oci backend requires --oci-repo")
		}
		opts = append(opts, blobkit.WithOCIBackend(repo, nil))
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}

	return blobkit.Open(opts...)
}
