// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command hailstone searches for long Collatz (hailstone)
// trajectories on the GPU.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hailstone-search/hailstone/collatz"
	"github.com/hailstone-search/hailstone/search"
	"github.com/hailstone-search/hailstone/vkc"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hailstone: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hailstone",
		Short:         "GPU search for long Collatz trajectories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flagDebug {
				level = slog.LevelDebug
				vkc.Debug = true
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
				&slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"config file (.toml, .yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"enable debug logging and Vulkan validation layers")
	root.AddCommand(searchCmd(), devicesCmd(), versionCmd())
	return root
}

// loadConfig resolves the effective config: defaults, then the
// config file if given, then any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (search.Config, error) {
	cf := search.Defaults()
	if flagConfig != "" {
		var err error
		cf, err = search.LoadConfig(flagConfig)
		if err != nil {
			return cf, err
		}
	}
	fl := cmd.Flags()
	if fl.Changed("start") {
		cf.Start, _ = fl.GetUint64("start")
	}
	if fl.Changed("count") {
		cf.Count, _ = fl.GetUint64("count")
	}
	if fl.Changed("batch") {
		cf.BatchSize, _ = fl.GetInt("batch")
	}
	if fl.Changed("device") {
		cf.Device, _ = fl.GetInt("device")
	}
	if fl.Changed("shader") {
		cf.Shader, _ = fl.GetString("shader")
	}
	if fl.Changed("verify") {
		st, _ := fl.GetInt("verify")
		cf.VerifyStride = st
	}
	if fl.Changed("timeout") {
		d, _ := fl.GetDuration("timeout")
		cf.Timeout = search.Duration(d)
	}
	return cf, cf.Validate()
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "run the candidate search",
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSearch(cf)
		},
	}
	def := search.Defaults()
	fl := cmd.Flags()
	fl.Uint64("start", def.Start, "first candidate to check")
	fl.Uint64("count", def.Count, "candidates to check (0 = until interrupted)")
	fl.Int("batch", def.BatchSize, "candidates per cycle")
	fl.Int("device", def.Device, "physical device index (-1 = auto)")
	fl.String("shader", def.Shader, "compiled kernel (SPIR-V)")
	fl.Int("verify", def.VerifyStride, "verify every nth result on the CPU (0 = off)")
	fl.Duration("timeout", def.Timeout.Std(), "per-cycle completion timeout")
	return cmd
}

func runSearch(cf search.Config) error {
	log := slog.Default()
	instr := vkc.NewInstrumentation(log)
	log.Info("starting search", "run", instr.RunID, "start", cf.Start,
		"count", cf.Count, "batch", cf.BatchSize)

	cm, err := vkc.NewCompute("hailstone", cf.Device, instr)
	if err != nil {
		return err
	}
	defer cm.Close()
	cm.Timeout = cf.Timeout.Std()
	log.Info("using device", "name", cm.GPU.DeviceName)

	if err := cm.LoadKernelFile(cf.Shader); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rn := search.NewRunner(cf, cm, log)
	start := time.Now()
	err = rn.Run(ctx)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() == nil {
		return err
	}
	rate := float64(rn.Records.Checked) / elapsed.Seconds()
	fmt.Printf("%s\n", rn.Records.String())
	fmt.Printf("%d candidates in %v (%.0f/s), %d cycles\n",
		rn.Records.Checked, elapsed.Round(time.Millisecond), rate, instr.Cycles)
	return nil
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "list Vulkan physical devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := vkc.InitNoDisplay(); err != nil {
				return err
			}
			gp := vkc.NewGPU(nil)
			if err := gp.Init("hailstone", -1); err != nil {
				return err
			}
			defer gp.Destroy()
			names, err := gp.DeviceNames()
			if err != nil {
				return err
			}
			for i, name := range names {
				mark := " "
				if name == gp.DeviceName {
					mark = "*"
				}
				fmt.Printf("%s %d: %s\n", mark, i, name)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hailstone %s (item %dB, result %dB, max %d steps)\n",
				Version, collatz.ItemSize, collatz.ResultSize, collatz.MaxSteps)
		},
	}
}
