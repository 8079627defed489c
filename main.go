// Command craftping queries the live status of Minecraft servers over the
// Java edition Server List Ping protocol (TCP) or the Bedrock edition
// RakNet ping (UDP).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/craftping/craftping/protocol"
	"github.com/craftping/craftping/query"
)

var version = "dev"

type options struct {
	Edition         string        `short:"e" long:"edition" description:"Server edition to query" choice:"java" choice:"bedrock" choice:"auto" default:"auto"`
	Port            uint16        `short:"p" long:"port" description:"Server port (default depends on edition)"`
	Timeout         time.Duration `short:"t" long:"timeout" description:"Query timeout" default:"5s"`
	ProtocolVersion int32         `long:"protocol-version" description:"Protocol version for the Java handshake" default:"-1"`
	Format          string        `short:"f" long:"format" description:"Output format" choice:"text" choice:"json" default:"text"`
	LogLevel        string        `long:"log-level" description:"Log level (trace, debug, info, warn, error)" default:"warn"`
	ListEditions    bool          `short:"l" long:"list" description:"List supported editions and exit"`
	Version         bool          `short:"v" long:"version" description:"Print version and exit"`

	Args struct {
		Address string `positional-arg-name:"host[:port]"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] host[:port]"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	setupLogger(opts.LogLevel)

	if opts.Version {
		fmt.Println("craftping", version)
		return
	}
	if opts.ListEditions {
		listEditions()
		return
	}
	if opts.Args.Address == "" {
		fmt.Fprintln(os.Stderr, "Usage: craftping [OPTIONS] host[:port]")
		os.Exit(1)
	}

	host, port, err := parseAddress(opts.Args.Address, opts.Port)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid address")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	queryOpts := []query.Option{
		query.Timeout(opts.Timeout),
		query.ProtocolVersion(opts.ProtocolVersion),
	}
	if port != 0 {
		queryOpts = append(queryOpts, query.Port(port))
	}

	var info *protocol.ServerInfo
	if opts.Edition == "auto" {
		info, err = query.AutoDetect(ctx, host, queryOpts...)
	} else {
		info, err = query.Query(ctx, opts.Edition, host, queryOpts...)
	}
	if err != nil {
		log.Fatal().Err(err).Str("address", opts.Args.Address).Msg("Query failed")
	}

	if err := render(info, opts.Format); err != nil {
		log.Fatal().Err(err).Msg("Output failed")
	}
}

// setupLogger configures the global zerolog instance for console output.
func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

// parseAddress splits an optional :port suffix off the address. A port
// flag and a port suffix may both be absent; the edition default applies.
func parseAddress(addr string, flagPort uint16) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port suffix. Bare IPv6 addresses arrive bracketed.
		if len(addr) > 2 && addr[0] == '[' && addr[len(addr)-1] == ']' {
			return addr[1 : len(addr)-1], flagPort, nil
		}
		return addr, flagPort, nil
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("invalid port: %s", portStr)
	}
	return host, uint16(port), nil
}

func listEditions() {
	editions := query.SupportedEditions()
	sort.Strings(editions)

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Edition", "Default Port"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for _, edition := range editions {
		tw.Append([]string{edition, strconv.Itoa(int(query.DefaultPort(edition)))})
	}
	tw.Render()
}

func render(info *protocol.ServerInfo, format string) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Field", "Value"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	tw.Append([]string{"Address", net.JoinHostPort(info.Address, strconv.Itoa(int(info.Port)))})
	tw.Append([]string{"Edition", info.Edition})
	tw.Append([]string{"Name", info.Name})
	tw.Append([]string{"Version", info.Version})
	tw.Append([]string{"Players", fmt.Sprintf("%d/%d", info.Players.Online, info.Players.Max)})
	tw.Append([]string{"Ping", fmt.Sprintf("%dms", info.Ping)})

	extras := make([]string, 0, len(info.Extra))
	for key := range info.Extra {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		tw.Append([]string{key, info.Extra[key]})
	}

	tw.Render()
	return nil
}
