// Command filebed-sandbox serves the file bed wire contract over an
// in-memory store for local development.
package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/filebed/filebed_sdk_go/internal/config"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/filebed/filebed_sdk_go/pkg/filebed/mock"
	"github.com/filebed/filebed_sdk_go/pkg/filebed_sdk"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		logrus.Fatalf("configure logging: %v", err)
	}

	rand.Seed(time.Now().UnixNano())

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatalf("init store: %v", err)
	}

	failCfg, err := parseFailConfig(cfg.Sandbox.Fail)
	if err != nil {
		logger.Fatalf("parse fail flag: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr: cfg.Sandbox.Addr,
		Handler: newRouter(store, serverOptions{
			secret:  cfg.Secret,
			latency: cfg.Sandbox.Latency,
			fail:    failCfg,
			log:     logger,
		}),
	}

	logger.Infof("filebed-sandbox listening on %s", cfg.Sandbox.Addr)
	fmt.Println()
	fmt.Printf("export %s=%s\n", filebed_sdk.EnvMode, filebed_sdk.ModeHTTP)
	host := cfg.Sandbox.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Printf("export %s=http://%s\n", filebed.EnvAPIURL, host)
	if cfg.Secret != "" {
		fmt.Printf("export %s=%s\n", filebed.EnvSecret, cfg.Secret)
	}
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server failed: %v", err)
	}
}

// loadConfig layers the config file, FILEBED_* variables and flags, in
// increasing precedence.
func loadConfig(args []string) (*config.Config, error) {
	flags := pflag.NewFlagSet("filebed-sandbox", pflag.ContinueOnError)
	var opts sandboxFlags
	opts.register(flags)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	opts.apply(flags, cfg)
	return cfg, nil
}

// newStore builds the sandbox store. The configured seed wins over
// FILEBED_MOCK_SEED; only one of them is loaded.
func newStore(cfg *config.Config) (*mock.Store, error) {
	seed := cfg.Sandbox.Seed
	if strings.TrimSpace(seed) == "" {
		seed = os.Getenv(filebed_sdk.EnvMockSeed)
	}
	return filebed_sdk.NewSeededMockStore(seed, mock.WithLastFileCount(cfg.Sandbox.LastFileCount))
}

type sandboxFlags struct {
	config    string
	addr      string
	seed      string
	secret    string
	latency   time.Duration
	fail      string
	lastFiles int
	logLevel  string
}

func (f *sandboxFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.config, config.FlagConfig, "", "config file (default "+config.DefaultPath+")")
	flags.StringVar(&f.addr, "addr", ":8880", "listen address")
	flags.StringVar(&f.seed, "seed", "", "path to a JSON or YAML file seed")
	flags.StringVar(&f.secret, config.FlagSecret, "", "shared secret; when set, requests need a valid HS256 bearer token")
	flags.DurationVar(&f.latency, "latency", 0, "artificial latency to inject per request")
	flags.StringVar(&f.fail, "fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flags.IntVar(&f.lastFiles, "last-files", mock.DefaultLastFileCount, "entries returned by listLastFileInfo")
	flags.StringVar(&f.logLevel, config.FlagLogLevel, "info", "log level")
}

// apply fills cfg: explicit flags always win, flag defaults only fill
// values the config file left empty.
func (f *sandboxFlags) apply(flags *pflag.FlagSet, cfg *config.Config) {
	use := func(name string, empty bool) bool {
		return flags.Changed(name) || empty
	}
	if use("addr", cfg.Sandbox.Addr == "") {
		cfg.Sandbox.Addr = f.addr
	}
	if use("seed", cfg.Sandbox.Seed == "") {
		cfg.Sandbox.Seed = f.seed
	}
	if use(config.FlagSecret, cfg.Secret == "") {
		cfg.Secret = f.secret
	}
	if use("latency", cfg.Sandbox.Latency == 0) {
		cfg.Sandbox.Latency = f.latency
	}
	if use("fail", cfg.Sandbox.Fail == "") {
		cfg.Sandbox.Fail = f.fail
	}
	if use("last-files", cfg.Sandbox.LastFileCount == 0) {
		cfg.Sandbox.LastFileCount = f.lastFiles
	}
	if use(config.FlagLogLevel, cfg.LogLevel == "") {
		cfg.LogLevel = f.logLevel
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		value := strings.TrimSpace(keyVal[1])
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v out of range [0,1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(value)
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
