package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/williamokano/bucketview/pkg/gateway"
)

func (a *app) bucketsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "List buckets visible to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			buckets, err := a.gateway.ListBuckets(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), buckets)
			}
			if len(buckets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No buckets found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BUCKET\tCREATED")
			for _, b := range buckets {
				created := "-"
				if !b.CreationDate.IsZero() {
					created = b.CreationDate.Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\n", b.Name, created)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) lsCmd() *cobra.Command {
	var (
		all      bool
		asJSON   bool
		pageSize int
		cursor   string
	)

	cmd := &cobra.Command{
		Use:   "ls <bucket>",
		Short: "List objects in a bucket one page at a time",
		Long: `Lists one page of objects. When more objects remain the command prints the
cursor to pass back with --cursor. Use --all to follow every page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			var page gateway.ListingPage
			if all {
				objects, err := a.gateway.ListAllObjects(cmd.Context(), bucket)
				if err != nil {
					return err
				}
				page.Objects = objects
			} else {
				var err error
				page, err = a.gateway.ListObjectsPage(cmd.Context(), bucket, pageSize, cursor)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tSIZE\tMODIFIED")
			for _, o := range page.Objects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Name, o.FileType, formatSize(o.Size),
					o.LastModified.Local().Format(time.DateTime))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "\nMore objects available, continue with --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "follow every page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "objects per page (default from config)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor from a previous page")
	cmd.MarkFlagsMutuallyExclusive("all", "cursor")
	return cmd
}

func (a *app) uploadCmd() *cobra.Command {
	var (
		contentType string
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "upload <bucket> <file>...",
		Short: "Upload files under a YYYY/MM/DD/<millis>_<name> key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			for _, path := range args[1:] {
				key, err := a.uploadFile(cmd, bucket, path, contentType, progress)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (guessed from the extension when empty)")
	cmd.Flags().BoolVar(&progress, "progress", false, "show upload progress on stderr")
	return cmd
}

func (a *app) uploadFile(cmd *cobra.Command, bucket, path, contentType string, progress bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	var onProgress func(int)
	if progress {
		onProgress = newProgressBar(cmd.ErrOrStderr(), filepath.Base(path)).Update
	}

	return a.gateway.UploadObject(cmd.Context(), bucket, gateway.Upload{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}, onProgress)
}

func (a *app) getCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <bucket> <key>",
		Short: "Download an object",
		Long:  `Downloads an object to --output, or to a file named after the last key segment. Use --output - for stdout.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key := args[0], args[1]
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			if output == "-" {
				_, err := a.gateway.DownloadObject(cmd.Context(), bucket, key, cmd.OutOrStdout())
				return err
			}

			dest := output
			if dest == "" {
				dest = filepath.Base(filepath.FromSlash(key))
			}
			n, err := a.downloadTo(cmd, bucket, key, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s (%s)\n", key, dest, formatSize(n))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, - for stdout")
	return cmd
}

// downloadTo writes into a temp file next to dest and renames it on success
func (a *app) downloadTo(cmd *cobra.Command, bucket, key, dest string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".bucketview-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := a.gateway.DownloadObject(cmd.Context(), bucket, key, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), dest)
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <bucket> <key>...",
		Short: "Delete objects",
		Long: `Deletes keys one at a time in order. With delete_mode "abort" the first
failure stops the batch; with "continue" every key is attempted.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, keys := args[0], args[1:]
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			var err error
			if len(keys) == 1 {
				err = a.gateway.DeleteObject(cmd.Context(), bucket, keys[0])
			} else {
				err = a.gateway.DeleteObjects(cmd.Context(), bucket, keys)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d object(s) from %s\n", len(keys), bucket)
			return nil
		},
	}
}

func (a *app) presignCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "presign <bucket> <key>",
		Short: "Print a time-limited download URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = a.cfg.PresignTTL()
			}
			url, err := a.gateway.PresignDownloadURL(cmd.Context(), args[0], args[1], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "link lifetime (default from config)")
	return cmd
}
