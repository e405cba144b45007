// Command cmtsim replays a YAML scenario against the CMT ledger and prints
// the resulting balances, cost bases, stakes and rewards.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cmtlabs/libcmt-go/config"
	"github.com/cmtlabs/libcmt-go/engine"
	"github.com/cmtlabs/libcmt-go/store"
)

const stateFile = "state.db"

func main() {
	configPath := flag.String("config", "", "config file (default <data dir>/config.yaml, built-in defaults if absent)")
	scenarioPath := flag.String("scenario", "", "scenario file to replay")
	persist := flag.Bool("persist", false, "resume from and save to <data dir>/state.db")
	checkpoint := flag.String("checkpoint", "", "store the final state as a named checkpoint (needs -persist)")
	initConfig := flag.Bool("init", false, "write the default config and exit")
	flag.Parse()

	if err := run(*configPath, *scenarioPath, *persist, *checkpoint, *initConfig); err != nil {
		fmt.Fprintln(os.Stderr, "cmtsim:", err)
		os.Exit(1)
	}
}

func run(configPath, scenarioPath string, persist bool, checkpoint string, initConfig bool) error {
	cfg, path, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if initConfig {
		if err := config.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	}
	if scenarioPath == "" {
		return errors.New("no -scenario given")
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	set, err := engine.FromConfig(cfg)
	if err != nil {
		return err
	}
	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	var st *store.BoltStore
	if persist {
		st, err = store.OpenBoltStore(filepath.Join(cfg.DataDir, stateFile))
		if err != nil {
			return err
		}
		defer st.Close()
	}
	sys, err := openSystem(set, log, st)
	if err != nil {
		return err
	}

	log.Info("replaying scenario", zap.String("name", sc.Name), zap.Int("steps", len(sc.Steps)), zap.Uint64("seq", sys.Seq()))
	r := newRunner(sys)
	runErr := r.Run(sc)

	if st != nil {
		if err := sys.Save(st); err != nil {
			return err
		}
		if checkpoint != "" {
			if err := sys.Checkpoint(st, checkpoint); err != nil {
				return err
			}
		}
	}
	if err := writeReport(os.Stdout, sys, r); err != nil {
		return err
	}
	return runErr
}

// loadConfig reads the config file, falling back to defaults when the
// default location has none.
func loadConfig(path string) (config.Config, string, error) {
	explicit := path != ""
	if !explicit {
		dir := config.DefaultDataDir()
		if v := os.Getenv(config.EnvDataDir); v != "" {
			dir = v
		}
		path = config.ConfigPath(dir)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil && (explicit || !errors.Is(err, config.ErrConfigNotFound)) {
		return cfg, path, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// openSystem resumes from st when it holds a saved state.
func openSystem(set engine.Settings, log *zap.Logger, st *store.BoltStore) (*engine.System, error) {
	opts := engine.Options{Logger: log}
	if st == nil {
		return engine.New(set, opts)
	}
	snap, err := st.Load()
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return engine.New(set, opts)
	}
	if err != nil {
		return nil, err
	}
	return engine.Open(set, opts, snap)
}

// newLogger builds a console logger at level, also writing to file when
// set.
func newLogger(level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidLogLevel, level)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	if file != "" {
		zc.OutputPaths = append(zc.OutputPaths, file)
	}
	return zc.Build()
}
