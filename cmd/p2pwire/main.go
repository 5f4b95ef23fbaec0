package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pborges/p2pwire"
	"github.com/pborges/p2pwire/internal/config"
	"github.com/pborges/p2pwire/internal/logging"
	"github.com/pborges/p2pwire/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "p2pwire [sub]",
		Short:         "Tools for the p2p line protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	encodeCmd := &cobra.Command{
		Use:   "encode [command] [param]...",
		Short: "Print the wire form of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEncode,
	}
	encodeCmd.Flags().Bool("quote", false, "print as a quoted Go string")

	decodeCmd := &cobra.Command{
		Use:   "decode [line]",
		Short: "Scan and tokenize one message",
		Long:  "Scan and tokenize one message. A terminating newline is appended when missing.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}

	versionCmd := &cobra.Command{
		Use:   "version [major.minor.patch]",
		Short: "Validate a version string",
		Args:  cobra.ExactArgs(1),
		RunE:  runVersion,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a node answering the version handshake",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "node config file (toml)")

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Handshake with a remote peer",
		RunE:  runProbe,
	}
	probeCmd.Flags().String("ip", "", "remote address in <ip> format")
	_ = probeCmd.MarkFlagRequired("ip")
	probeCmd.Flags().Int("port", p2pwire.DefaultPort, "remote port")
	probeCmd.Flags().Duration("timeout", 2*time.Second, "handshake timeout")

	sweepCmd := &cobra.Command{
		Use:   "sweep [network]...",
		Short: "Probe every host of the given /24 networks",
		Long:  "Probe every host of the given /24 networks, if none are supplied all local networks are swept",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Int("port", p2pwire.DefaultPort, "remote port")
	sweepCmd.Flags().Duration("timeout", 2*time.Second, "per host timeout")
	sweepCmd.Flags().Bool("errors", false, "display all errors")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "List peers announced over mDNS",
		RunE:  runBrowse,
	}
	browseCmd.Flags().String("service", p2pwire.MdnsService, "mDNS service type")
	browseCmd.Flags().Duration("timeout", 5*time.Second, "how long to listen")

	rootCmd.AddCommand(encodeCmd, decodeCmd, versionCmd, serveCmd, probeCmd, sweepCmd, browseCmd)
	return rootCmd
}

func runEncode(cmd *cobra.Command, args []string) error {
	var buf p2pwire.Buffer
	if err := p2pwire.EncodeMessage(&buf, p2pwire.NewMessage(args[0], args[1:]...)); err != nil {
		return err
	}
	quote, err := cmd.Flags().GetBool("quote")
	if err != nil {
		return err
	}
	if quote {
		fmt.Fprintln(cmd.OutOrStdout(), strconv.Quote(string(buf.Bytes())))
		return nil
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func runDecode(cmd *cobra.Command, args []string) error {
	line := args[0]
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	var buf p2pwire.Buffer
	if err := buf.Set([]byte(line)); err != nil {
		return err
	}
	res := p2pwire.Scan(&buf)
	fmt.Fprintln(cmd.OutOrStdout(), "scan:", res)
	if res != p2pwire.Complete {
		return res.Err()
	}
	return p2pwire.RenderTokenTable(cmd.OutOrStdout(), p2pwire.SequenceOf(&buf))
}

func runVersion(cmd *cobra.Command, args []string) error {
	v, err := p2pwire.ParseVersion(args[0])
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Major", "Minor", "Patch", "Canonical"})
	table.Append([]string{
		strconv.Itoa(int(v.Major)),
		strconv.Itoa(int(v.Minor)),
		strconv.Itoa(int(v.Patch)),
		v.String(),
	})
	table.Render()
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Configure(logging.ProfileRuntime)

	cfg := config.DefaultNodeConfig()
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if path != "" {
		if cfg, err = config.LoadNodeConfig(path); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}

	node := p2pwire.NewNode(cfg.ID, cfg.Version)
	node.Log = log.With().Str("node", cfg.ID).Logger()
	node.ReadTimeout = cfg.ReadTimeout
	node.WriteTimeout = cfg.WriteTimeout

	if cfg.MetricsAddr != "" {
		metrics := observability.NewMetrics(cfg.ID)
		node.Metrics = metrics
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				node.Log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer srv.Close()
	}

	if cfg.MDNS {
		port := ln.Addr().(*net.TCPAddr).Port
		server, err := p2pwire.Advertise(cfg.ID, cfg.Version, port, cfg.MDNSService)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("mdns advertise: %w", err)
		}
		defer server.Shutdown()
		node.Log.Info().Str("service", cfg.MDNSService).Int("port", port).Msg("advertising")
	}

	return node.Serve(ctx, ln)
}

func runProbe(cmd *cobra.Command, args []string) error {
	ip, err := cmd.Flags().GetString("ip")
	if err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	peer, err := p2pwire.Probe(cmd.Context(), addr, timeout)
	if err != nil {
		return err
	}
	p2pwire.RenderPeerTable(cmd.OutOrStdout(), []p2pwire.PeerInfo{peer})
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	sweeper := p2pwire.NewSweeper()
	sweeper.Log = logging.Configure(logging.ProfileRuntime)

	var err error
	if sweeper.Port, err = cmd.Flags().GetInt("port"); err != nil {
		return err
	}
	if sweeper.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}

	var networks []net.IP
	for _, a := range args {
		ip := net.ParseIP(a)
		if ip == nil {
			return fmt.Errorf("invalid network %q", a)
		}
		networks = append(networks, ip)
	}
	if len(networks) == 0 {
		if networks, err = p2pwire.LocalNetworks(); err != nil {
			return err
		}
	}

	peers, sweepErr := sweeper.Sweep(cmd.Context(), networks...)
	p2pwire.RenderPeerTable(cmd.OutOrStdout(), peers)

	if showErrors, err := cmd.Flags().GetBool("errors"); err == nil && showErrors {
		var errs p2pwire.SweepErrors
		if errors.As(sweepErr, &errs) {
			for _, e := range errs {
				fmt.Fprintln(cmd.OutOrStdout(), e.Error())
			}
		}
	}
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	service, err := cmd.Flags().GetString("service")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	found := make(map[string]p2pwire.PeerInfo)
	err = p2pwire.Browse(ctx, service, func(p p2pwire.PeerInfo) {
		found[p.ID] = p
	})
	if err != nil {
		return err
	}

	peers := make([]p2pwire.PeerInfo, 0, len(found))
	for _, p := range found {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].ID < peers[j].ID
	})
	p2pwire.RenderPeerTable(cmd.OutOrStdout(), peers)
	return nil
}
