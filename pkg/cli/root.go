package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/williamokano/bucketview/pkg/config"
	"github.com/williamokano/bucketview/pkg/gateway"
	"github.com/williamokano/bucketview/pkg/logger"
	"github.com/williamokano/bucketview/pkg/vault"
)

// app carries what every command needs once the root pre-run has loaded it
type app struct {
	configFile string
	profileRef string
	logLevel   string

	cfg     *config.Config
	logger  zerolog.Logger
	vault   *vault.Vault
	gateway *gateway.Gateway
}

// NewRootCmd builds the bucketview command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "bucketview",
		Short: "Browse and manage S3-compatible object storage",
		Long: `bucketview keeps encrypted connection profiles for S3-compatible stores
(MinIO, AWS S3, a local directory) and lets you list, upload, download,
delete and share objects from the active profile.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.gateway == nil {
				return nil
			}
			return a.gateway.Close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "path to a JSON config file")
	root.PersistentFlags().StringVarP(&a.profileRef, "profile", "p", "", "profile name or id to use instead of the active one")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(a.profileCmd())
	root.AddCommand(a.bucketsCmd())
	root.AddCommand(a.lsCmd())
	root.AddCommand(a.uploadCmd())
	root.AddCommand(a.getCmd())
	root.AddCommand(a.rmCmd())
	root.AddCommand(a.presignCmd())

	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	a.logger = *logger.Get()

	slot, err := vault.NewFileSlot(cfg.VaultPath)
	if err != nil {
		return err
	}
	v, err := vault.New(slot, vault.WithLogger(a.logger.With().Str("component", "vault").Logger()))
	if err != nil {
		return err
	}
	a.vault = v

	mode, err := gateway.ParseDeleteMode(cfg.DeleteMode)
	if err != nil {
		return err
	}
	a.gateway = gateway.New(
		gateway.WithLogger(a.logger.With().Str("component", "gateway").Logger()),
		gateway.WithRetry(cfg.StorageRetry()),
		gateway.WithPageSize(cfg.PageSize),
		gateway.WithDeleteMode(mode),
	)
	return nil
}

var errNoProfile = errors.New("no active profile; add one with 'bucketview profile add' or pass --profile")

// connect initializes the gateway with the --profile selection or the active profile
func (a *app) connect(ctx context.Context) error {
	var (
		p   vault.Profile
		err error
	)
	if a.profileRef != "" {
		p, err = a.findProfile(a.profileRef)
		if err != nil {
			return err
		}
	} else {
		var ok bool
		if p, ok = a.vault.ActiveProfile(); !ok {
			return errNoProfile
		}
	}
	return a.gateway.Initialize(ctx, p)
}

// findProfile resolves ref as a profile id first and then as a unique name
func (a *app) findProfile(ref string) (vault.Profile, error) {
	if p, err := a.vault.Profile(ref); err == nil {
		return p, nil
	}

	var matches []vault.Profile
	for _, p := range a.vault.ListProfiles() {
		if p.Name == ref {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return vault.Profile{}, fmt.Errorf("%w: %s", vault.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return vault.Profile{}, fmt.Errorf("profile name %q is ambiguous, use the id", ref)
	}
}
