package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/williamokano/bucketview/pkg/gateway"
	"github.com/williamokano/bucketview/pkg/storage"
	"github.com/williamokano/bucketview/pkg/vault"
)

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage saved connection profiles",
	}

	cmd.AddCommand(a.profileListCmd())
	cmd.AddCommand(a.profileAddCmd())
	cmd.AddCommand(a.profileUpdateCmd())
	cmd.AddCommand(a.profileDeleteCmd())
	cmd.AddCommand(a.profileUseCmd())
	cmd.AddCommand(a.profileClearCmd())
	cmd.AddCommand(a.profileTestCmd())

	return cmd
}

func (a *app) profileListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := a.vault.ListProfiles()
			active, _ := a.vault.ActiveProfile()

			if asJSON {
				masked := make([]vault.Profile, len(profiles))
				for i, p := range profiles {
					p.SecretKey = p.MaskedSecret()
					masked[i] = p
				}
				return writeJSON(cmd.OutOrStdout(), masked)
			}

			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles saved")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTIVE\tID\tNAME\tDRIVER\tENDPOINT\tSSL\tACCESS_KEY\tSECRET_KEY\tUPDATED")
			for _, p := range profiles {
				marker := ""
				if p.ID == active.ID {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
					marker, p.ID, p.Name, driverName(p), gateway.EndpointFor(p).HostPort(),
					p.UseSSL, p.AccessKey, p.MaskedSecret(),
					time.UnixMilli(p.UpdatedAt).Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON with secrets masked")
	return cmd
}

type profileFlags struct {
	name      string
	endpoint  string
	port      int
	useSSL    bool
	accessKey string
	secretKey string
	keyFile   string
	driver    string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "host name, or root directory for the local driver")
	cmd.Flags().IntVar(&f.port, "port", 9000, "port, 0 for the scheme default")
	cmd.Flags().BoolVar(&f.useSSL, "ssl", false, "connect with HTTPS")
	cmd.Flags().StringVar(&f.accessKey, "access-key", "", "access key id, B2 key id or SFTP user")
	cmd.Flags().StringVar(&f.secretKey, "secret-key", "", "secret access key, B2 application key, SFTP password or PEM key")
	cmd.Flags().StringVar(&f.keyFile, "secret-key-file", "", "read the secret key from a file")
	cmd.MarkFlagsMutuallyExclusive("secret-key", "secret-key-file")
	cmd.Flags().StringVar(&f.driver, "driver", "", "storage driver: s3 (default), minio, b2, sftp or local")
}

// loadKeyFile replaces the secret key with the contents of --secret-key-file
func (f *profileFlags) loadKeyFile() error {
	if f.keyFile == "" {
		return nil
	}
	data, err := os.ReadFile(f.keyFile)
	if err != nil {
		return fmt.Errorf("read secret key file: %w", err)
	}
	f.secretKey = strings.TrimRight(string(data), "\r\n")
	if strings.Contains(f.secretKey, "-----BEGIN") {
		f.secretKey += "\n"
	}
	return nil
}

func (f *profileFlags) fields() vault.ProfileFields {
	return vault.ProfileFields{
		Name:      f.name,
		Endpoint:  f.endpoint,
		Port:      f.port,
		UseSSL:    f.useSSL,
		AccessKey: f.accessKey,
		SecretKey: f.secretKey,
		Driver:    f.driver,
	}
}

// update collects only the flags that were set on the command line
func (f *profileFlags) update(cmd *cobra.Command) vault.ProfileUpdate {
	var u vault.ProfileUpdate
	changed := cmd.Flags().Changed
	if changed("name") {
		u.Name = &f.name
	}
	if changed("endpoint") {
		u.Endpoint = &f.endpoint
	}
	if changed("port") {
		u.Port = &f.port
	}
	if changed("ssl") {
		u.UseSSL = &f.useSSL
	}
	if changed("access-key") {
		u.AccessKey = &f.accessKey
	}
	if changed("secret-key") || changed("secret-key-file") {
		u.SecretKey = &f.secretKey
	}
	if changed("driver") {
		u.Driver = &f.driver
	}
	return u
}

func (a *app) profileAddCmd() *cobra.Command {
	var (
		flags  profileFlags
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new profile; the first one saved becomes active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDriver(flags.driver); err != nil {
				return err
			}
			if err := flags.loadKeyFile(); err != nil {
				return err
			}
			fields := flags.fields()

			if verify {
				candidate := vault.Profile{
					Name: fields.Name, Endpoint: fields.Endpoint, Port: fields.Port, UseSSL: fields.UseSSL,
					AccessKey: fields.AccessKey, SecretKey: fields.SecretKey, Driver: fields.Driver,
				}
				if !a.gateway.TestConnection(cmd.Context(), candidate) {
					return fmt.Errorf("cannot reach %s with these credentials, profile not saved",
						gateway.EndpointFor(candidate).HostPort())
				}
			}

			p, err := a.vault.AddProfile(fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added profile %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&verify, "verify", false, "test the connection before saving")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("endpoint")
	return cmd
}

func (a *app) profileUpdateCmd() *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "update <profile>",
		Short: "Change the given fields of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.findProfile(args[0])
			if err != nil {
				return err
			}
			if err := flags.loadKeyFile(); err != nil {
				return err
			}
			u := flags.update(cmd)
			if u.IsEmpty() {
				return errors.New("nothing to update, pass at least one field flag")
			}
			if u.Driver != nil {
				if err := checkDriver(*u.Driver); err != nil {
					return err
				}
			}

			updated, err := a.vault.UpdateProfile(p.ID, u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %s (%s)\n", updated.Name, updated.ID)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func (a *app) profileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <profile>",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.findProfile(args[0])
			if err != nil {
				return err
			}
			if err := a.vault.DeleteProfile(p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", p.Name)
			if active, ok := a.vault.ActiveProfile(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", active.Name)
			}
			return nil
		},
	}
}

func (a *app) profileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <profile>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.findProfile(args[0])
			if err != nil {
				return err
			}
			if err := a.vault.SetActive(p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", p.Name)
			return nil
		},
	}
}

func (a *app) profileClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Erase every saved profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to erase all profiles without --yes")
			}
			if err := a.vault.ClearAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All profiles erased")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm erasing all profiles")
	return cmd
}

func (a *app) profileTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [profile...]",
		Short: "Check that profiles can reach their endpoint",
		Long:  `Lists buckets with each profile concurrently. Without arguments every saved profile is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var profiles []vault.Profile
			if len(args) == 0 {
				profiles = a.vault.ListProfiles()
			}
			for _, ref := range args {
				p, err := a.findProfile(ref)
				if err != nil {
					return err
				}
				profiles = append(profiles, p)
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles saved")
				return nil
			}

			results := a.gateway.TestConnections(cmd.Context(), profiles, a.cfg.ProbeConcurrency)

			failed := 0
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tDURATION\tERROR")
			for _, r := range results {
				status := "ok"
				if !r.OK {
					status = "unreachable"
					failed++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, status, r.Duration.Round(time.Millisecond), r.Error)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d profiles unreachable", failed, len(results))
			}
			return nil
		},
	}
}

func checkDriver(driver string) error {
	if driver == "" {
		return nil
	}
	for _, d := range storage.Drivers() {
		if d == driver {
			return nil
		}
	}
	return fmt.Errorf("unknown driver %q, available: %v", driver, storage.Drivers())
}

func driverName(p vault.Profile) string {
	if p.Driver == "" {
		return storage.DefaultDriver
	}
	return p.Driver
}
