package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"voxclip/audio"
	"voxclip/config"
	"voxclip/doctor"
	"voxclip/log"
)

type rootOptions struct {
	configPath string
	logPath    string
	device     string
	setup      bool
	script     string
	realtime   bool
	noCues     bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "voxclip",
		Short: "Record, list and replay short audio clips",
		Long: `voxclip records clips from the microphone, lists them for the current
session and lets you replay or delete each one.

Keys: space/r start or stop, ↑/↓ select, p/enter play, d delete,
y copy file location, q quit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.script != "" {
				return runScript(cmd.Context(), opts, os.Stdin, cmd.OutOrStdout())
			}
			return runTUI(cmd.Context(), opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/voxclip/config.yaml)")
	pf.StringVar(&opts.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.StringVar(&opts.device, "device", "", "use named microphone device (overrides config)")

	f := root.Flags()
	f.BoolVar(&opts.setup, "setup", false, "select microphone device interactively")
	f.StringVar(&opts.script, "script", "", "headless mode: drive the recorder from stdin using a WAV file as microphone")
	f.BoolVar(&opts.realtime, "realtime", false, "with --script, feed the WAV at wall-clock speed")
	f.BoolVar(&opts.noCues, "no-cues", false, "disable start/stop tones")

	root.AddCommand(
		newDevicesCmd(opts),
		newDoctorCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// prepare loads the config and prepares the log directory for every command.
func (o *rootOptions) prepare(cmd *cobra.Command) error {
	path := o.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = p
	}
	o.configPath = path

	cfg, err := config.Load(path)
	if err != nil {
		// doctor reports a broken config as its first check
		if cmd.Name() != doctorCmdName {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.Default()
	}
	if o.device != "" {
		cfg.Device = o.device
	}
	if o.noCues {
		cfg.Cues = false
	}
	o.cfg = cfg

	logFlag := o.logPath
	if logFlag == "" {
		logFlag = cfg.LogPath
	}
	logDir, err := log.ResolveDir(logFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logDir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		return nil
	}

	if crashFile, err := log.CrashFile(); err == nil {
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		crashFile.Close()
	}
	return nil
}

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer ctx.Close()

			devices, err := ctx.Devices()
			if err != nil {
				return fmt.Errorf("listing devices: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No capture devices found.")
				return nil
			}
			fmt.Fprintf(out, "Capture devices (%d found):\n", len(devices))
			for i, d := range devices {
				marker := " "
				if d.Name == opts.cfg.Device {
					marker = "*"
				}
				bt := ""
				if audio.IsBluetooth(d.Name) {
					bt = " (bluetooth)"
				}
				fmt.Fprintf(out, " %s %d. %s%s\n", marker, i+1, d.Name, bt)
			}
			return nil
		},
	}
}

const doctorCmdName = "doctor"

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   doctorCmdName,
		Short: "Check the microphone, playback and log directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := doctor.Run(cmd.Context(), doctor.Options{
				Device:     opts.cfg.Device,
				ConfigPath: opts.configPath,
				LogDir:     log.Dir(),
				Out:        cmd.OutOrStdout(),
			})
			if code != 0 {
				return errors.New("some checks failed")
			}
			return nil
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a commented default config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.WriteDefault(opts.configPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.configPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := yaml.Marshal(opts.cfg)
				if err != nil {
					return fmt.Errorf("error marshaling config: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			},
		},
	)
	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "voxclip %s\n", version)
		},
	}
}
