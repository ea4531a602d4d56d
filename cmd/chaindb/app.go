// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/config"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/factory"
	"github.com/ava-labs/shardchain/utils/logging"
	"github.com/ava-labs/shardchain/utils/wrappers"
)

var errNotInitialized = errors.New("database holds no chain")

// app holds the resources opened for a single command.
type app struct {
	fs     *pflag.FlagSet
	config config.Config

	logs  logging.Factory
	log   logging.Logger
	db    database.Database
	store *store.Store
}

func newRootCommand() *cobra.Command {
	a := &app{
		fs: config.BuildFlagSet(),
	}
	cmd := &cobra.Command{
		Use:          "chaindb",
		Short:        "Inspects and maintains a shard chain database",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().AddFlagSet(a.fs)
	cmd.AddCommand(
		a.headCommand(),
		a.blockCommand(),
		a.heightCommand(),
		a.gcCommand(),
	)
	return cmd
}

// withStore opens the configured database around [run].
func (a *app) withStore(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return errors.Join(err, a.close())
		}
		err := run(cmd, args)
		return errors.Join(err, a.close())
	}
}

func (a *app) open() error {
	// The flags were parsed by cobra.
	v, err := config.BuildViper(a.fs, nil)
	if err != nil {
		return err
	}
	a.config, err = config.GetConfig(v)
	if err != nil {
		return err
	}

	a.logs = logging.NewFactory(a.config.Logging)
	a.log, err = a.logs.Make("chaindb")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	a.db, err = factory.New(a.config.Database, reg, a.log)
	if err != nil {
		return err
	}
	a.store, err = store.New(a.config.Chain.Store, a.db, prometheus.WrapRegistererWithPrefix("store_", reg))
	if err != nil {
		return err
	}

	initialized, err := a.store.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		return fmt.Errorf("%w at %s", errNotInitialized, a.config.Database.Path)
	}
	a.log.Debug("opened database",
		zap.String("type", a.config.Database.Name),
		zap.String("path", a.config.Database.Path),
	)
	return nil
}

func (a *app) close() error {
	errs := wrappers.Errs{}
	if a.db != nil {
		errs.Add(a.db.Close())
		a.db = nil
	}
	if a.logs != nil {
		a.logs.Close()
		a.logs = nil
	}
	return errs.Err
}
