package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw965/qreplay/config"
)

const envPrefix = "QREPLAY"

// app is the state shared by every subcommand of one invocation.
type app struct {
	v   *viper.Viper
	cfg *config.File
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), cfg: config.Default()}

	root := &cobra.Command{
		Use:   "qreplay",
		Short: "Tabular Q-learning by experience replay",
		Long: `qreplay learns a Q table and a greedy policy from recorded
(state, action, reward, next state) tuples by replaying the batch.

Settings come from the YAML file given by --config, QREPLAY_* environment
variables (a .env file in the working directory is read first) and flags,
in increasing order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML configuration file")
	pf.String("log-level", a.cfg.Logging.Level, "Log level (trace, debug, info, warn, error)")
	pf.String("log-format", a.cfg.Logging.Format, "Log format (console, json)")
	pf.BoolP("verbose", "v", false, "Shorthand for --log-level debug")

	root.AddCommand(
		newTrainCmd(a),
		newSampleCmd(a),
		newGridworldCmd(a),
	)
	return root
}

func addControlFlags(cmd *cobra.Command, a *app) {
	c := a.cfg.Control
	f := cmd.Flags()
	f.Float64("alpha", c.Alpha, "Learning rate in [0, 1]")
	f.Float64("gamma", c.Gamma, "Discount factor in [0, 1]")
	f.Float64("epsilon", c.Epsilon, "Exploration rate in [0, 1] for epsilon-greedy sampling")
	f.Int("iter", c.Iter, "Replay passes over the batch")
}

func addSamplingFlags(cmd *cobra.Command, a *app) {
	s := a.cfg.Sampling
	f := cmd.Flags()
	f.IntP("samples", "n", s.N, "Number of transitions to sample")
	f.Uint64("seed", s.Seed, "Random seed")
	f.String("strategy", s.Strategy, "Action selection (random, greedy, epsilon-greedy)")
	f.Int("parallelism", s.Parallelism, "Sampling workers, capped at the CPU count")
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if path := a.v.GetString("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	a.override()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.setupLogger(cmd)
	return nil
}

// override applies environment variables and flags that were given
// explicitly on top of the configuration file.
func (a *app) override() {
	v, c := a.v, a.cfg
	if v.IsSet("alpha") {
		c.Control.Alpha = v.GetFloat64("alpha")
	}
	if v.IsSet("gamma") {
		c.Control.Gamma = v.GetFloat64("gamma")
	}
	if v.IsSet("epsilon") {
		c.Control.Epsilon = v.GetFloat64("epsilon")
	}
	if v.IsSet("iter") {
		c.Control.Iter = v.GetInt("iter")
	}
	if v.IsSet("samples") {
		c.Sampling.N = v.GetInt("samples")
	}
	if v.IsSet("seed") {
		c.Sampling.Seed = v.GetUint64("seed")
	}
	if v.IsSet("strategy") {
		c.Sampling.Strategy = v.GetString("strategy")
	}
	if v.IsSet("parallelism") {
		c.Sampling.Parallelism = v.GetInt("parallelism")
	}
	if v.IsSet("log-level") {
		c.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("log-format") {
		c.Logging.Format = v.GetString("log-format")
	}
	if v.GetBool("verbose") {
		c.Logging.Level = zerolog.DebugLevel.String()
	}
}

func (a *app) setupLogger(cmd *cobra.Command) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	a.log = a.cfg.Logging.NewLogger(cmd.ErrOrStderr())
	log.Logger = a.log
}
