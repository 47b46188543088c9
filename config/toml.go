package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/atomicfile"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	tmos "github.com/tendermint/tendermint/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// DecodeHook converts the string forms found in config files and flags into
// the decimal, duration and list fields of Config.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToDecimalHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func stringToDecimalHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return data, nil
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and panics if it fails.
func EnsureRoot(rootDir string) {
	if err := tmos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		panic(err.Error())
	}
}

// ConfigFile returns the path of config.toml under rootDir.
func ConfigFile(rootDir string) string {
	return filepath.Join(rootDir, defaultConfigFilePath)
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
// This function is called by cmd/orderbookd/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(ConfigFile(rootDir))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all. The rendered file is parsed back before it replaces
// the old one.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}
	var check map[string]interface{}
	if _, err := toml.Decode(buffer.String(), &check); err != nil {
		return fmt.Errorf("rendered config is not valid toml: %w", err)
	}

	_, err := atomicfile.WriteAll(path, &buffer, 0644)
	return err
}

// LoadFile reads the config file at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if _, err := toml.Decode(string(bz), &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       DecodeHook(),
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg, nil
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	if !tmos.FileExists(ConfigFile(rootDir)) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/orderbook/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.orderbook" by default, but could be changed via $OBHOME env variable
# or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# Chain the node serves. Event sinks attribute events to it.
chain-id = "{{ .BaseConfig.ChainID }}"

# Database backend: goleveldb | memdb | pebbledb
# * goleveldb (github.com/syndtr/goleveldb)
#   - pure go
#   - stable
# * pebbledb (github.com/cockroachdb/pebble)
#   - pure go
#   - faster batch commits
# * memdb
#   - state is lost on restart, for testing only
db-backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db-dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

# Path to the JSON file holding the app_state of the genesis document
genesis-file = "{{ js .BaseConfig.Genesis }}"

#######################################################
###            ABCI Server Configuration            ###
#######################################################
[abci]

# TCP or UNIX socket address the ABCI server listens on
laddr = "{{ .ABCI.ListenAddress }}"

# Mechanism to connect to the ABCI application: socket | grpc
transport = "{{ .ABCI.Transport }}"

#######################################################
###           Engine Configuration Options          ###
#######################################################
[engine]

# Weight each block may spend on expiring and aligning limit orders
expiration-weight-limit = {{ .Engine.ExpirationWeightLimit }}

# Maximal number of price levels per side a /depth query returns
query-depth-limit = {{ .Engine.QueryDepthLimit }}

# Engine constants written into the genesis by 'init'. A running chain
# takes them from its genesis.
[engine.params]
ms-per-block = {{ .Engine.Params.MsPerBlock }}
min-order-lifespan = {{ .Engine.Params.MinOrderLifespan }}
max-order-lifespan = {{ .Engine.Params.MaxOrderLifespan }}
max-opened-limit-orders-per-user = {{ .Engine.Params.MaxOpenedLimitOrdersPerUser }}
max-limit-orders-for-price = {{ .Engine.Params.MaxLimitOrdersForPrice }}
max-side-price-count = {{ .Engine.Params.MaxSidePriceCount }}
max-expiring-orders-per-block = {{ .Engine.Params.MaxExpiringOrdersPerBlock }}
max-price-shift = "{{ .Engine.Params.MaxPriceShift }}"
soft-min-max-ratio = {{ .Engine.Params.SoftMinMaxRatio }}
hard-min-max-ratio = {{ .Engine.Params.HardMinMaxRatio }}

#######################################################
###          Event Sink Configuration Options       ###
#######################################################
[event-sink]

# Where the events of committed blocks are written.
#
# Options:
#   1) "null" (default) - events are dropped.
#   2) "kafka" - one message per event, keyed by order book.
#   3) "psql" - one row per event in the orderbook_events table.
# "kafka" and "psql" can be combined.
sinks = [{{ range $i, $e := .EventSink.Sinks }}{{if $i}}, {{end}}{{ printf "%q" $e}}{{end}}]

# Number of committed blocks buffered before Commit waits on the sinks
buffer-size = {{ .EventSink.BufferSize }}

# Timeout of one write to a sink
write-timeout = "{{ .EventSink.WriteTimeout }}"

# Kafka brokers, e.g. ["localhost:9092"]
kafka-brokers = [{{ range $i, $e := .EventSink.KafkaBrokers }}{{if $i}}, {{end}}{{ printf "%q" $e}}{{end}}]
kafka-topic = "{{ .EventSink.KafkaTopic }}"
kafka-batch-timeout = "{{ .EventSink.KafkaBatchTimeout }}"

# The PostgreSQL connection configuration, the connection format:
#   postgresql://<user>:<password>@<host>:<port>/<db>?<opts>
psql-conn = "{{ .EventSink.PsqlConn }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
# Check out the documentation for the list of available metrics.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus-listen-addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# If you want to accept a larger number than the default, make sure
# you increase your OS limits.
# 0 - unlimited.
max-open-connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh home directory under dir holding a default
// config file, and returns a test config rooted there.
func ResetTestRoot(dir, testName string) (*Config, error) {
	rootDir, err := os.MkdirTemp(dir, testName+"_")
	if err != nil {
		return nil, err
	}
	// ensure config and data subdirs are created
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return nil, err
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		return nil, err
	}
	if err := writeDefaultConfigFileIfNone(rootDir); err != nil {
		return nil, err
	}
	return TestConfig().SetRoot(rootDir), nil
}
