// Command adblock runs a filtering HTTP proxy backed by the ad-block engine.
package main

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/mitm"
	goFlags "github.com/jessevdk/go-flags"
	"github.com/traychrome/adblock"
	"github.com/traychrome/adblock/internal/settings"
	"github.com/traychrome/adblock/proxy"
)

// Options are the console arguments.
type Options struct {
	// Verbose enables debug-level logging.
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`

	// LogOutput is the path to the log file.
	LogOutput string `short:"o" long:"output" description:"Path to the log file. If not set, it writes to stderr." default:""`

	// ListenAddr is the server listen address.
	ListenAddr string `short:"l" long:"listen" description:"Listen address." default:"127.0.0.1"`

	// ListenPort is the server listen port.
	ListenPort int `short:"p" long:"port" description:"Listen port." default:"8080"`

	// SettingsPath is the path to the settings file.
	SettingsPath string `short:"s" long:"settings" description:"Path to the settings file. It is reloaded on SIGHUP."`

	// FilterLists are the paths to the filter lists with block rules.
	FilterLists []string `short:"f" long:"filter" description:"Path to the filter list. Can be specified multiple times."`

	// AllowLists are the paths to the filter lists with allow rules.
	AllowLists []string `short:"w" long:"allow" description:"Path to the allow list. Can be specified multiple times."`

	// Defaults enables the built-in block rules.
	Defaults bool `short:"d" long:"defaults" description:"Load the built-in block rules." optional:"yes" optional-value:"true"`

	// CacheSize is the size of the decision cache.
	CacheSize int `long:"cache-size" description:"Number of decisions to cache. Zero disables the cache." default:"4096"`

	// TLSCertPath is the path to the .crt with the certificate chain.
	TLSCertPath string `short:"c" long:"ca-cert" description:"Path to a file with the root certificate. Enables HTTPS filtering."`

	// TLSKeyPath is the path to the file with the private key.
	TLSKeyPath string `short:"k" long:"ca-key" description:"Path to a file with the CA private key."`

	// ProxyUser is the proxy username.
	ProxyUser string `short:"u" long:"username" description:"Proxy auth username. If specified, proxy authorization is required."`

	// ProxyPassword is the proxy password.
	ProxyPassword string `short:"a" long:"password" description:"Proxy auth password. If specified, proxy authorization is required."`

	// HTTPSProxy starts an HTTPS proxy instead of a plain HTTP one.
	HTTPSProxy bool `short:"t" long:"https" description:"Run an HTTPS proxy (otherwise, it runs plain HTTP proxy)." optional:"yes" optional-value:"true"`

	// HTTPSHostname is the server name for the HTTPS proxy.
	HTTPSHostname string `short:"n" long:"https-name" description:"Server name or IP address of the HTTPS proxy."`
}

func main() {
	var options Options
	var parser = goFlags.NewParser(&options, goFlags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*goFlags.Error); ok && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}

	err = run(options)
	if err != nil {
		_, _ = io.WriteString(os.Stderr, err.Error()+"\n")

		os.Exit(1)
	}
}

// run starts the proxy and blocks until it is stopped by a signal.
func run(options Options) (err error) {
	output := io.Writer(os.Stderr)
	if options.LogOutput != "" {
		// #nosec G302 G304 -- Trust the path given by the user.
		file, fileErr := os.OpenFile(options.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if fileErr != nil {
			return errors.Annotate(fileErr, "creating log file: %w")
		}
		defer func() { err = errors.WithDeferred(err, file.Close()) }()

		output = file
	}

	logger := newLogger(output, options.Verbose)
	logger.Info("starting proxy")

	engine, err := adblock.NewEngine(&adblock.Config{
		Logger:    logger.With(slogutil.KeyPrefix, "adblock"),
		CacheSize: options.CacheSize,
	})
	if err != nil {
		return errors.Annotate(err, "creating engine: %w")
	}

	conf, err := createServerConfig(options)
	if err != nil {
		return err
	}

	conf.Logger = logger.With(slogutil.KeyPrefix, "proxy")
	server := proxy.NewServer(conf)
	engine.Initialize(server)

	err = applySettings(engine, options)
	if err != nil {
		return err
	}

	err = server.Start()
	if err != nil {
		return errors.Annotate(err, "starting proxy server: %w")
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signalChannel {
		if sig != syscall.SIGHUP {
			break
		}

		err = applySettings(engine, options)
		if err != nil {
			logger.Error("reloading settings", slogutil.KeyError, err)
		} else {
			logger.Info("settings reloaded", "block_rules", len(engine.BlockRules()))
		}
	}

	server.Close()

	st := engine.Stats()
	logger.Info(
		"proxy stopped",
		"uptime", server.Uptime().Round(time.Second),
		"requests", st.Requests,
		"blocked", st.Blocked,
		"allowed", st.Allowed,
		"failed", st.Failed,
		"top_blocked", st.TopBlockedDomains,
	)

	return nil
}

// newLogger returns a text logger writing to w.
func newLogger(w io.Writer, verbose bool) (l *slog.Logger) {
	return slogutil.New(&slogutil.Config{
		Output:       w,
		Format:       slogutil.FormatText,
		AddTimestamp: true,
		Verbose:      verbose,
	})
}

// applySettings loads the settings file, if any, merges the command-line
// filter lists into it and applies the result to e.  Without a settings file
// filtering is enabled.
func applySettings(e *adblock.Engine, options Options) (err error) {
	s := settings.Default()
	s.AdBlock.Enabled = true
	s.AdBlock.LoadDefaults = false

	if options.SettingsPath != "" {
		s, err = settings.Load(options.SettingsPath)
		if err != nil {
			return err
		}
	}

	ab := s.AdBlock
	ab.LoadDefaults = ab.LoadDefaults || options.Defaults
	ab.BlockLists = append(ab.BlockLists, options.FilterLists...)
	ab.AllowLists = append(ab.AllowLists, options.AllowLists...)

	err = s.Validate()
	if err != nil {
		return errors.Annotate(err, "settings: %w")
	}

	return s.Apply(e)
}

func createServerConfig(options Options) (conf *proxy.Config, err error) {
	listenIP, err := netip.ParseAddr(options.ListenAddr)
	if err != nil {
		return nil, errors.Annotate(err, "parsing listen address: %w")
	}

	port, err := validatePort(options.ListenPort)
	if err != nil {
		return nil, err
	}

	var mitmConfig *mitm.Config
	if options.TLSCertPath != "" || options.TLSKeyPath != "" {
		mitmConfig, err = createMITMConfig(options)
		if err != nil {
			return nil, err
		}
	}

	var tlsConfig *tls.Config
	if options.HTTPSProxy {
		tlsConfig, err = createTLSConfig(mitmConfig, options.HTTPSHostname)
		if err != nil {
			return nil, err
		}
	}

	return &proxy.Config{
		ProxyConfig: gomitmproxy.Config{
			ListenAddr: net.TCPAddrFromAddrPort(netip.AddrPortFrom(listenIP, port)),
			TLSConfig:  tlsConfig,

			Username: options.ProxyUser,
			Password: options.ProxyPassword,

			MITMConfig: mitmConfig,
		},
	}, nil
}

// errBadPort is returned when the listen port is out of range.
const errBadPort errors.Error = "port must be between 1 and 65535"

// validatePort returns an error if port is not a valid TCP port.
func validatePort(port int) (p uint16, err error) {
	if port < 1 || port > math.MaxUint16 {
		return 0, fmt.Errorf("listen port %d: %w", port, errBadPort)
	}

	return uint16(port), nil
}

// createTLSConfig returns the TLS configuration of the HTTPS proxy with a
// certificate for hostname issued by the MITM CA.
func createTLSConfig(mitmConfig *mitm.Config, hostname string) (conf *tls.Config, err error) {
	if mitmConfig == nil {
		return nil, errors.Error("HTTPS proxy requires the CA certificate and key")
	} else if hostname == "" {
		return nil, errors.Error("HTTPS hostname must be specified")
	}

	proxyCert, err := mitmConfig.GetOrCreateCert(hostname)
	if err != nil {
		return nil, errors.Annotate(err, "generating HTTPS proxy certificate for %q: %w", hostname)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{*proxyCert},
		ServerName:   hostname,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func createMITMConfig(options Options) (mitmConfig *mitm.Config, err error) {
	tlsCert, err := tls.LoadX509KeyPair(options.TLSCertPath, options.TLSKeyPath)
	if err != nil {
		return nil, errors.Annotate(err, "loading root CA: %w")
	}

	privateKey, ok := tlsCert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Error("root CA private key must be RSA")
	}

	x509c, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, errors.Annotate(err, "invalid certificate: %w")
	}

	mitmConfig, err = mitm.NewConfig(x509c, privateKey, nil)
	if err != nil {
		return nil, errors.Annotate(err, "creating MITM config: %w")
	}

	// Generate certs valid for 7 days.
	mitmConfig.SetValidity(time.Hour * 24 * 7)
	mitmConfig.SetOrganization("AdBlock")

	return mitmConfig, nil
}
