// Command escalate submits a transaction to an RSK or other legacy gas price
// node and escalates its gas price until it is mined.
//
// Usage:
//
//	escalate send --to 0x77045E71a7A2c50903d88e564cD72fab11e82051 --data 0x1234
//	escalate status
//	escalate devkeys
//
// Configuration is read from the environment (and a .env file):
//
//	ESCALATOR_RPC_URL        RPC endpoint URL (default: http://localhost:4444)
//	ESCALATOR_PRIVATE_KEY    hex private key of the sending account, or
//	                         regtest:<seed> for an RSK regtest account
//	ESCALATOR_TX_SETTINGS    JSON transaction settings, e.g. {"gasFactor":2}
//	ESCALATOR_POLICY_FILE    TOML file with a [policy] table
//	ESCALATOR_LOG_LEVEL      trace, debug, info, warn, error or crit
//	ESCALATOR_LOG_FORMAT     terminal, logfmt or json
//	ESCALATOR_METRICS_ADDR   serve prometheus metrics on this address
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"txescalate/config"
	"txescalate/escalator"
	"txescalate/ethclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "escalate",
		Usage: "submit transactions with gas price escalation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load",
				Value: config.DefaultDotEnv,
			},
			&cli.StringFlag{
				Name:  "policy-file",
				Usage: "TOML policy file, overrides ESCALATOR_POLICY_FILE",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "submit a transaction and wait for it to be mined",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Usage: "recipient address", Required: true},
					&cli.StringFlag{Name: "data", Usage: "hex call data", Value: "0x"},
					&cli.Uint64Flag{Name: "gas-limit", Usage: "gas limit, estimated from the payload when 0"},
					&cli.DurationFlag{Name: "timeout", Usage: "give up after this long, 0 for no limit"},
				},
				Action: sendAction,
			},
			{
				Name:   "status",
				Usage:  "print the account, its nonce and the suggested gas price",
				Action: statusAction,
			},
			{
				Name:   "devkeys",
				Usage:  "print the pre-funded RSK regtest accounts",
				Action: devkeysAction,
			},
		},
	}
}

// env bundles everything a command needs.
type env struct {
	cfg    *config.Config
	lggr   log.Logger
	client *ethclient.Client
	signer *ethclient.KeySigner
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if f := c.String("policy-file"); f != "" {
		cfg.PolicyFile = f
	}

	handler, err := cfg.LogHandler(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
	if err != nil {
		return nil, err
	}
	lggr := log.NewLogger(handler)
	log.SetDefault(lggr)

	if cfg.PrivateKey == "" {
		return nil, errors.New("ESCALATOR_PRIVATE_KEY is not set")
	}
	client, err := ethclient.DialContext(c.Context, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err)
	}
	signer, err := newSigner(c.Context, client, cfg.PrivateKey)
	if err != nil {
		client.Close()
		return nil, err
	}
	signer.WithNode(ethclient.NewFloorGasPricer(client, nil))
	return &env{cfg: cfg, lggr: lggr, client: client, signer: signer}, nil
}

func newSigner(ctx context.Context, client *ethclient.Client, key string) (*ethclient.KeySigner, error) {
	seed, ok := strings.CutPrefix(key, "regtest:")
	if !ok {
		return ethclient.NewKeySignerFromHex(ctx, client, key)
	}
	devKey, err := ethclient.DevKey(seed)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return ethclient.NewKeySigner(client, devKey, chainID)
}

func sendAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.client.Close()

	if !common.IsHexAddress(c.String("to")) {
		return fmt.Errorf("invalid recipient %q", c.String("to"))
	}
	to := common.HexToAddress(c.String("to"))
	data, err := hexutil.Decode(c.String("data"))
	if err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	policy, err := e.cfg.Policy()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := escalator.NewMetrics(reg)
	if e.cfg.MetricsAddr != "" {
		srv := serveMetrics(e.cfg.MetricsAddr, reg, e.lggr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	esc, err := escalator.New(e.signer, nil, policy, e.lggr, escalator.WithMetrics(metrics))
	if err != nil {
		return err
	}

	ctx := c.Context
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	e.lggr.Info("Submitting transaction", "from", e.signer.Address(), "to", to, "chainID", e.signer.ChainID(),
		"dataLen", len(data), "maxEscalations", policy.MaxEscalations)
	receipt, err := esc.SubmitWithEscalation(ctx, to, data, c.Uint64("gas-limit"))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func statusAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.client.Close()

	head, err := e.client.BlockNumber(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	nonce, err := escalator.ResolveNonce(c.Context, e.signer)
	if err != nil {
		return err
	}
	gasPrice, err := e.signer.Node().SuggestGasPrice(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "account:   %s\n", e.signer.Address())
	fmt.Fprintf(c.App.Writer, "chain id:  %s\n", e.signer.ChainID())
	fmt.Fprintf(c.App.Writer, "block:     %d\n", head)
	fmt.Fprintf(c.App.Writer, "nonce:     %d\n", nonce)
	fmt.Fprintf(c.App.Writer, "gas price: %s wei\n", gasPrice)
	return nil
}

func devkeysAction(c *cli.Context) error {
	for _, seed := range ethclient.RegtestSeeds {
		key, err := ethclient.DevKey(seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "regtest:%-5s %s\n", seed, crypto.PubkeyToAddress(key.PublicKey))
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, lggr log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		lggr.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lggr.Error("Metrics server failed", "err", err)
		}
	}()
	return srv
}
