// Package magicnumcli provides the magicnum command-line interface.
package magicnumcli

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/abi"
	"github.com/solidifylabs/magicnum/config"
	"github.com/solidifylabs/magicnum/debugui"
	"github.com/solidifylabs/magicnum/region"
	"github.com/solidifylabs/magicnum/runopts"
	"github.com/solidifylabs/magicnum/verify"
)

// Run runs the CLI with the process's command-line arguments. It should be
// called from a main.main() function. For usage, invoke the binary with
// --help.
func Run() {
	if err := NewCommand().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

// NewCommand returns the root command of the CLI.
func NewCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)
	root := &cobra.Command{
		Use:   "magicnum",
		Short: "Assemble and verify minimal EVM programs that return a constant",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "increase logging verbosity")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")

	loadConfig := func() (*config.Config, error) {
		if configPath == "" {
			return config.Default(), nil
		}
		return config.Load(configPath)
	}

	root.AddCommand(
		assembleCmd(),
		execCmd(loadConfig),
		verifyCmd(loadConfig),
		debugCmd(loadConfig),
	)
	return root
}

// programFlags are common to all commands that operate on a single Program.
type programFlags struct {
	value, region string
}

func (f *programFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.value, "value", "42", "value returned by the program; decimal or 0x-prefixed hex")
	cmd.Flags().StringVarP(&f.region, "region", "r", region.ZeroSlot.String(), "memory region in which the value is staged; name or offset")
}

func (f *programFlags) assemble() (magicnum.Program, error) {
	v, err := config.ParseValue(f.value)
	if err != nil {
		return magicnum.Program{}, err
	}
	r, err := region.Parse(f.region)
	if err != nil {
		return magicnum.Program{}, err
	}
	return magicnum.Assemble(*v, r)
}

func assembleCmd() *cobra.Command {
	var f programFlags
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble a program and print its code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.assemble()
			if err != nil {
				return err
			}
			ins, err := magicnum.Disassemble(p.Payload())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "region:  %v (%v)\n", p.Region(), p.Region().Class())
			fmt.Fprintf(out, "init:    %#x\n", p.InitCode())
			fmt.Fprintf(out, "runtime: %#x\n", p.RuntimeCode())
			fmt.Fprintf(out, "payload: %#x\n\n", p.Payload())
			fmt.Fprint(out, magicnum.FormatInstructions(ins))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func execCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		f        programFlags
		runtime  bool
		callData []byte
	)
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Assemble a program then execute it on the magicnum machine",
		Long: "Executes the payload, printing the code that it returns, or, with --runtime, " +
			"executes the runtime code with the call data, printing the returned value.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.assemble()
			if err != nil {
				return err
			}
			opts, err := runOptions(loadConfig)
			if err != nil {
				return err
			}

			code := p.Payload()
			if runtime {
				code = p.RuntimeCode()
			}
			ret, err := magicnum.RunBytecode(code, callData, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !runtime {
				fmt.Fprintf(out, "%#x\n", ret)
				return nil
			}
			v, err := abi.DecodeUint256(ret)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v.Dec())
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&runtime, "runtime", false, "execute the runtime code instead of the payload")
	cmd.Flags().BytesHexVarP(&callData, "calldata", "d", nil, "call data, in hex")
	return cmd
}

func runOptions(loadConfig func() (*config.Config, error)) ([]runopts.Option, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return c.Options()
}

func verifyCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Deploy and call programs for every configured region and backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			plan, err := c.Plan()
			if err != nil {
				return err
			}
			targets, release, err := c.Targets()
			if err != nil {
				return err
			}
			defer func() {
				if err := release(); err != nil {
					log.Errorf("Releasing backends: %v", err)
				}
			}()

			results, err := verify.Run(cmd.Context(), plan, targets...)
			for _, r := range results {
				if r.Target == "" { // not reached before cancellation
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			if err != nil {
				return err
			}
			if n := verify.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d verifications failed", n, len(results))
			}
			return nil
		},
	}
}

func debugCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var f programFlags
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Step through a program's runtime code in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.assemble()
			if err != nil {
				return err
			}
			c, err := loadConfig()
			if err != nil {
				return err
			}
			opts, err := c.Options()
			if err != nil {
				return err
			}
			callData, err := abi.EncodeCall(c.Signature)
			if err != nil {
				return err
			}

			code := p.RuntimeCode()
			dbg, results, err := magicnum.DebugBytecode(code, callData, opts...)
			if err != nil {
				return err
			}
			defer dbg.FastForward()
			return debugui.Run(dbg, code, callData, results)
		},
	}
	f.register(cmd)
	return cmd
}
