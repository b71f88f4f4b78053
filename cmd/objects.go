package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"objstore/core/logger"
	"objstore/core/storage"

	"github.com/spf13/cobra"
)

// withDriver opens the configured driver for the duration of fn.
func withDriver(cmd *cobra.Command, fn func(ctx context.Context, d storage.Driver, cfg storage.Config) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	return storage.Use(cmd.Context(), cfg.Storage, l, func(d storage.Driver) error {
		return fn(cmd.Context(), d, cfg.Storage)
	})
}

// parseRangeFlag accepts "start-end" or an empty string.
func parseRangeFlag(value string) (*storage.ByteRange, error) {
	if value == "" {
		return nil, nil
	}
	if !strings.HasPrefix(value, "bytes=") {
		value = "bytes=" + value
	}
	return storage.ParseRange(value)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var putCmd = &cobra.Command{
	Use:   "put <key> [file]",
	Short: "Upload a file (or stdin) to key",
	Long: `Uploads a file to key. Files larger than the configured part size are sent
as a multipart upload. Without a file argument stdin is streamed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, cfg storage.Config) error {
			key := args[0]
			if len(args) == 1 {
				return d.UploadStream(ctx, key, cmd.InOrStdin(), -1)
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			if info.Size() > cfg.PartSize() {
				return storage.UploadMultipart(ctx, d, key, f, cfg.PartSize(), concurrency)
			}
			return d.UploadStream(ctx, key, f, info.Size())
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key> [file]",
	Short: "Download key to a file (or stdout)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rangeFlag, _ := cmd.Flags().GetString("range")
		rng, err := parseRangeFlag(rangeFlag)
		if err != nil {
			return err
		}
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, _ storage.Config) error {
			body, err := d.DownloadStream(ctx, args[0], rng)
			if err != nil {
				return err
			}
			defer body.Close()

			out := cmd.OutOrStdout()
			if len(args) == 2 {
				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			_, err = io.Copy(out, body)
			return err
		})
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <key>",
	Short: "Show whether key exists and its size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, _ storage.Config) error {
			exists := d.Exists(ctx, args[0])
			var size uint64
			if exists {
				size = d.Size(ctx, args[0])
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"key":             args[0],
				"exists":          exists,
				"size":            size,
				"available_space": d.AvailableSpace(),
			})
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List the immediate children of prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, _ storage.Config) error {
			names, err := d.List(ctx, prefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Delete one or more keys",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, _ storage.Config) error {
			for _, key := range args {
				if err := d.Delete(ctx, key); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <key>",
	Short: "Create a directory marker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, _ storage.Config) error {
			return d.Create(ctx, args[0])
		})
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp <source> <destination>",
	Short: "Copy an object inside the bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, _ storage.Config) error {
			return d.Copy(ctx, args[0], args[1])
		})
	},
}

var multipartCmd = &cobra.Command{
	Use:   "multipart <key> <file>",
	Short: "Upload a file as a multipart upload",
	Long: `Splits the file into parts of --part-size MiB (at least 5) and uploads them
with --concurrency parts in flight. The upload is aborted on any failure.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		partSizeMB, _ := cmd.Flags().GetInt("part-size")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		return withDriver(cmd, func(ctx context.Context, d storage.Driver, cfg storage.Config) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			partSize := cfg.PartSize()
			if partSizeMB > 0 {
				partSize = int64(partSizeMB) * 1024 * 1024
			}
			return storage.UploadMultipart(ctx, d, args[0], f, partSize, concurrency)
		})
	},
}

func init() {
	putCmd.Flags().Int("concurrency", 4, "parts uploaded in parallel for large files")
	getCmd.Flags().String("range", "", "inclusive byte range, e.g. 0-1023")
	multipartCmd.Flags().Int("part-size", 0, "part size in MiB (default: STORAGE_PART_SIZE_MB)")
	multipartCmd.Flags().Int("concurrency", 4, "parts uploaded in parallel")

	RootCmd.AddCommand(putCmd, getCmd, statCmd, lsCmd, rmCmd, mkdirCmd, cpCmd, multipartCmd)
}
