package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/lox/tcpoker/internal/config"
	"github.com/lox/tcpoker/internal/randutil"
	"github.com/lox/tcpoker/internal/server"
	"github.com/lox/tcpoker/internal/table"
)

// ServerCmd runs a single table. Flags override the HCL config file.
type ServerCmd struct {
	Config    string `short:"c" default:"tcpoker.hcl" help:"Path to HCL configuration file"`
	Addr      string `short:"a" help:"Address to bind, host or host:port (overrides config)"`
	Port      int    `short:"p" help:"Port to listen on (overrides config)"`
	WSAddr    string `name:"ws-addr" help:"Also serve WebSocket clients on this address (overrides config)"`
	AutoSolve bool   `name:"auto-solve" help:"Pick every player's best hand at showdown (overrides config)"`
	Capacity  int    `help:"Seats at the table (overrides config)"`
	Ante      int    `help:"Table ante (overrides config)"`
	Seed      *int64 `help:"Deterministic shuffle seed (overrides config)"`
	Debug     bool   `help:"Enable debug logging"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	timeout, err := cfg.TurnTimeout()
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cfg.Server.LogLevel, cfg.Server.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	seed := randutil.Seed(cfg.Table.Seed)
	logger.Info("Starting table server",
		"addr", cfg.ListenAddress(),
		"ws_addr", cfg.Server.WSAddress,
		"capacity", cfg.Table.Capacity,
		"ante", cfg.Table.Ante,
		"starting_stack", cfg.Table.StartingStack,
		"auto_solve", cfg.Table.AutoSolve,
		"turn_timeout", timeout,
		"seed", seed)

	tbl := table.New(table.Config{
		Capacity:      cfg.Table.Capacity,
		Ante:          cfg.Table.Ante,
		StartingStack: cfg.Table.StartingStack,
		AutoSolve:     cfg.Table.AutoSolve,
		TurnTimeout:   timeout,
	}, logger, table.WithRand(randutil.New(seed)))
	defer tbl.Close()

	srv := server.New(server.Options{
		Address:   cfg.ListenAddress(),
		WSAddress: cfg.Server.WSAddress,
	}, tbl, logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return srv.Run(ctx)
}

// apply copies explicitly set flags over the loaded configuration.
func (c *ServerCmd) apply(cfg *config.Config) error {
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			cfg.Server.Address = c.Addr
		} else {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("invalid --addr %q: %w", c.Addr, err)
			}
			cfg.Server.Address, cfg.Server.Port = host, p
		}
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.WSAddr != "" {
		cfg.Server.WSAddress = c.WSAddr
	}
	if c.AutoSolve {
		cfg.Table.AutoSolve = true
	}
	if c.Capacity != 0 {
		cfg.Table.Capacity = c.Capacity
	}
	if c.Ante != 0 {
		cfg.Table.Ante = c.Ante
	}
	if c.Seed != nil {
		cfg.Table.Seed = *c.Seed
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	return nil
}
