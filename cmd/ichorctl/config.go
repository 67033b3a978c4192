package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/mage"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

type configFlags struct {
	out     string
	envFile string

	dexcomAccount  string
	dexcomPassword string

	mongoURI      string
	mongoUsername string
	mongoPassword string

	glucoseVeryLow  float64
	glucoseLow      float64
	glucoseHigh     float64
	glucoseVeryHigh float64

	direction string
	addr      string
	timezone  string
}

func newConfigCmd() *cobra.Command {
	f := &configFlags{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write a starter config for the ichor service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config()
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("unable to encode config: %w", err)
			}
			if err := os.WriteFile(f.out, data, 0o600); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.out)

			if f.envFile == "" {
				return nil
			}
			env := envString(map[string]string{
				"MONGO_USERNAME": f.mongoUsername,
				"MONGO_PASSWORD": f.mongoPassword,
			})
			if err := os.WriteFile(f.envFile, []byte(env), 0o600); err != nil {
				return fmt.Errorf("unable to write env file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.envFile)
			return nil
		},
	}

	defaults := defs.DefaultConfig()
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "config.yaml", "config file to write")
	fl.StringVar(&f.envFile, "env-file", "", "also write mongo credentials as an env file")
	fl.StringVar(&f.dexcomAccount, "dexcom-account", "", "dexcom account")
	fl.StringVar(&f.dexcomPassword, "dexcom-password", "", "dexcom password")
	fl.StringVar(&f.mongoURI, "mongo-uri", defaults.Mongo.URI, "mongo uri")
	fl.StringVar(&f.mongoUsername, "mongo-username", "", "mongo username")
	fl.StringVar(&f.mongoPassword, "mongo-password", "", "mongo password")
	fl.Float64Var(&f.glucoseLow, "glucose-low", defaults.Glucose.Low, "lower bound for glucose (mmol/L)")
	fl.Float64Var(&f.glucoseHigh, "glucose-high", defaults.Glucose.High, "upper bound for glucose (mmol/L)")
	fl.Float64Var(&f.glucoseVeryLow, "glucose-very-low", defaults.Glucose.VeryLow, "level 2 hypoglycemia bound (mmol/L)")
	fl.Float64Var(&f.glucoseVeryHigh, "glucose-very-high", defaults.Glucose.VeryHigh, "level 2 hyperglycemia bound (mmol/L)")
	fl.StringVar(&f.direction, "direction", "auto", "mage excursion direction")
	fl.StringVar(&f.addr, "addr", defaults.HTTP.Addr, "http listen address")
	fl.StringVar(&f.timezone, "timezone", "", "report timezone, e.g. America/Toronto")
	return cmd
}

func (f *configFlags) config() (defs.Config, error) {
	dir, err := mage.ParseDirection(f.direction)
	if err != nil {
		return defs.Config{}, err
	}

	cfg := defs.DefaultConfig()
	cfg.Dexcom = defs.DexcomConfig{Account: f.dexcomAccount, Password: f.dexcomPassword}
	cfg.Mongo.URI = f.mongoURI
	cfg.Mongo.Username = f.mongoUsername
	cfg.Mongo.Password = f.mongoPassword
	cfg.Glucose = defs.GlucoseConfig{
		VeryLow:  f.glucoseVeryLow,
		Low:      f.glucoseLow,
		High:     f.glucoseHigh,
		VeryHigh: f.glucoseVeryHigh,
	}
	cfg.Mage.Direction = dir
	cfg.HTTP.Addr = f.addr
	cfg.Timezone = f.timezone

	if err := cfg.Validate(); err != nil {
		return defs.Config{}, err
	}
	return cfg, nil
}

func envString(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintln(&sb, k+"="+vars[k])
	}
	return sb.String()
}
