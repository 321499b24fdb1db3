package internal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/mahlburgc/lorachat/internal/config"
	"github.com/mahlburgc/lorachat/internal/logging"
	"github.com/mahlburgc/lorachat/internal/relay"
	"github.com/mahlburgc/lorachat/internal/serialport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() (*cobra.Command, *Flags) {
	flags := &Flags{}

	rootCmd := &cobra.Command{
		Use:   "lorachat",
		Short: "Chat over a LoRa module attached to a serial port",
		Long: `lorachat sends every line you type to the LoRa module on the serial port
and shows the messages received from the remote peer. Diagnostic output of
the module firmware and the echo of your own messages are filtered out.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg)
		},
	}

	flags.register(rootCmd)
	rootCmd.AddCommand(newListCmd())

	return rootCmd, flags
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List available serial ports",
		Aliases: []string{"ls", "ports"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serialport.ListPorts(cmd.OutOrStdout())
		},
	}
}

// Execute runs the root command and exits on error.
func Execute() {
	rootCmd, _ := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(ctx context.Context, cfg config.Config) error {
	logFile, err := logging.Start(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	filter, err := cfg.Filter()
	if err != nil {
		return err
	}

	queue := chat.NewQueue()
	opts := []chat.Option{
		chat.WithFilter(filter),
		chat.WithSink(queue),
	}

	portName := cfg.Port
	if cfg.Mock {
		portName = "mock"
	}

	var hub *relay.Hub
	if cfg.Relay.Listen != "" {
		// the hub keeps the relay history itself
		hub = relay.NewHub(chat.NewHistory(cfg.Display.LogLimit), nil, portName)
		if p := cfg.Relay.Receiver; p != nil {
			hub.SetReceiver(relay.LatLng{Lat: p.Lat, Lng: p.Lng})
		}
		opts = append(opts, chat.WithSink(hub))
	}

	var conn *serialport.Conn
	var openErr error
	if cfg.Mock {
		conn = serialport.OpenMock(cfg.SerialSettings())
	} else {
		conn, openErr = serialport.Open(cfg.SerialSettings())
	}

	var bridge *chat.Bridge
	if conn != nil {
		bridge = chat.New(conn, opts...)
	} else {
		log.Error().Err(openErr).Msg("running without serial device")
		bridge = chat.New(nil, opts...)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var status <-chan chat.Status

	if conn != nil {
		poller := chat.NewPoller(bridge, conn)
		status = poller.Status()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = poller.Run(ctx)
		}()
	}

	if hub != nil {
		hub.SetSender(bridge)
		srv := relay.NewServer(cfg.Relay.Listen, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Str("addr", cfg.Relay.Listen).Msg("relay stopped")
			}
		}()
	}

	err = RunTui(Options{
		Bridge:      bridge,
		Queue:       queue,
		Status:      status,
		PortName:    portName,
		OpenErr:     openErr,
		Timestamp:   cfg.Display.Timestamp,
		ShowEscapes: cfg.Display.ShowEscapes,
		LogLimit:    cfg.Display.LogLimit,
	})

	cancel()
	if conn != nil {
		// unblocks a pending read of the poller
		if cerr := conn.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to close serial port")
		}
	}
	wg.Wait()

	return err
}
