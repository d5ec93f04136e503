// Package main provides the docpath command line tool for inspecting and
// editing JSON documents stored in DynamoDB item attributes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jacentio/docpath/document"
)

const appName = "docpath"

// options collects the connection and addressing flags shared by every
// subcommand. A config file fills in whatever the flags leave unset.
type options struct {
	configFile string

	table            string
	attr             string
	key              string
	keyAttribute     string
	versionAttribute string
	endpoint         string
	region           string
	rateLimit        float64
	logLevel         string
	consistent       bool
	ifVersion        int64
}

// fileConfig mirrors the connection flags so profiles can live in YAML.
type fileConfig struct {
	Table            string  `yaml:"table"`
	Attribute        string  `yaml:"attribute"`
	KeyAttribute     string  `yaml:"key_attribute"`
	VersionAttribute string  `yaml:"version_attribute"`
	Endpoint         string  `yaml:"endpoint"`
	Region           string  `yaml:"region"`
	RateLimit        float64 `yaml:"rate_limit"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "JSONPath operations on documents stored in DynamoDB",
		Long: `Docpath reads and edits JSON documents stored in a DynamoDB item
attribute, addressed by JSONPath expressions.

Simple paths (map keys and list indexes) execute as single server-side
operations; advanced paths (wildcards, recursive descent, filters,
slices) are evaluated client-side on the smallest enclosing document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.loadFile()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "YAML config file with connection defaults")
	pf.StringVarP(&o.table, "table", "t", "", "DynamoDB table name")
	pf.StringVarP(&o.attr, "attr", "a", "", "item attribute holding the document (default doc)")
	pf.StringVarP(&o.key, "key", "k", "", "partition key value of the item")
	pf.StringVar(&o.keyAttribute, "key-attribute", "", "partition key attribute name (default id)")
	pf.StringVar(&o.versionAttribute, "version-attribute", "", "attribute carrying the optimistic version counter")
	pf.StringVar(&o.endpoint, "endpoint", "", "DynamoDB endpoint override (for DynamoDB Local)")
	pf.StringVar(&o.region, "region", "", "AWS region")
	pf.Float64Var(&o.rateLimit, "rate-limit", 0, "client-side request rate limit per second (0 = unlimited)")
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(getCmd(o), putCmd(o), appendCmd(o), deleteCmd(o), versionCmd(o))
	return cmd
}

// loadFile merges the YAML config file into flags that were left unset.
func (o *options) loadFile() error {
	if o.configFile == "" {
		return nil
	}
	f, err := os.Open(o.configFile)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	if err := yaml.NewDecoder(f).Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", o.configFile, err)
	}

	if o.table == "" {
		o.table = fc.Table
	}
	if o.attr == "" {
		o.attr = fc.Attribute
	}
	if o.keyAttribute == "" {
		o.keyAttribute = fc.KeyAttribute
	}
	if o.versionAttribute == "" {
		o.versionAttribute = fc.VersionAttribute
	}
	if o.endpoint == "" {
		o.endpoint = fc.Endpoint
	}
	if o.region == "" {
		o.region = fc.Region
	}
	if o.rateLimit == 0 {
		o.rateLimit = fc.RateLimit
	}
	return nil
}

// resolve validates the addressing flags and returns the target key and
// document attribute.
func (o *options) resolve() (document.Key, string, error) {
	if o.table == "" {
		return document.Key{}, "", errors.New("a table is required (--table or config file)")
	}
	if o.key == "" {
		return document.Key{}, "", errors.New("a document key is required (--key)")
	}
	attr := o.attr
	if attr == "" {
		attr = "doc"
	}
	return document.Key{Table: o.table, ID: o.key}, attr, nil
}

func (o *options) newClient(ctx context.Context) (*document.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
	}
	if o.endpoint != "" {
		// Local endpoints accept any static credentials.
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")))
		if o.region == "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion("us-east-1"))
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	api := dynamodb.NewFromConfig(awsCfg, func(opts *dynamodb.Options) {
		if o.endpoint != "" {
			opts.BaseEndpoint = aws.String(o.endpoint)
		}
	})

	cfg := document.DefaultConfig()
	if o.keyAttribute != "" {
		cfg.KeyAttribute = o.keyAttribute
	}
	cfg.VersionAttribute = o.versionAttribute
	cfg.RateLimit = o.rateLimit
	cfg.Logger = o.logger()
	return document.New(api, cfg), nil
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// writeOptions builds write options from the --if-version flag; the flag
// must have been registered on the command.
func (o *options) writeOptions(cmd *cobra.Command) *document.WriteOptions {
	if cmd.Flags().Changed("if-version") {
		return document.IfVersion(o.ifVersion)
	}
	return nil
}

func getCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, attr, err := o.resolve()
			if err != nil {
				return err
			}
			client, err := o.newClient(cmd.Context())
			if err != nil {
				return err
			}
			var opts *document.ReadOptions
			if o.consistent {
				opts = document.Consistent()
			}
			result, err := client.Get(cmd.Context(), key, attr, args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&o.consistent, "consistent", false, "use a strongly consistent read")
	return cmd
}

func putCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <path> <value>",
		Short: "Write a value at a path",
		Long: `Write a value at a path. The value argument is parsed as JSON; anything
that does not parse is stored as a plain string. With --key omitted a
fresh UUID key is generated and printed after the write.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			generated := false
			if o.key == "" {
				o.key = uuid.NewString()
				generated = true
			}
			key, attr, err := o.resolve()
			if err != nil {
				return err
			}
			client, err := o.newClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Put(cmd.Context(), key, attr, args[0], parseValue(args[1]), o.writeOptions(cmd)); err != nil {
				return err
			}
			if generated {
				fmt.Fprintln(cmd.OutOrStdout(), key.ID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&o.ifVersion, "if-version", 0, "require this document version before writing")
	return cmd
}

func appendCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append <path> <value>",
		Short: "Append a value to the list at a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, attr, err := o.resolve()
			if err != nil {
				return err
			}
			client, err := o.newClient(cmd.Context())
			if err != nil {
				return err
			}
			return client.Append(cmd.Context(), key, attr, args[0], parseValue(args[1]), o.writeOptions(cmd))
		},
	}
	cmd.Flags().Int64Var(&o.ifVersion, "if-version", 0, "require this document version before writing")
	return cmd
}

func deleteCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, attr, err := o.resolve()
			if err != nil {
				return err
			}
			client, err := o.newClient(cmd.Context())
			if err != nil {
				return err
			}
			return client.Delete(cmd.Context(), key, attr, args[0], o.writeOptions(cmd))
		},
	}
	cmd.Flags().Int64Var(&o.ifVersion, "if-version", 0, "require this document version before writing")
	return cmd
}

func versionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the document's version counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _, err := o.resolve()
			if err != nil {
				return err
			}
			client, err := o.newClient(cmd.Context())
			if err != nil {
				return err
			}
			v, err := client.Version(cmd.Context(), key, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

// parseValue interprets a CLI argument as JSON, falling back to a plain
// string for bare words.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
